package report

import "strconv"

// Column aliases used by the base queries: t timesheets, ld leave_dates,
// l leaves, u users, c contracts, tr trainings.
const (
	throughPerformanceContracts = "t.id IN (SELECT p.timesheet_id FROM performances p JOIN contracts c ON c.id = p.contract_id WHERE %s)"
	throughPerformanceGroups    = "t.id IN (SELECT p.timesheet_id FROM performances p JOIN contract_contract_groups ccg ON ccg.contract_id = p.contract_id WHERE %s)"
	throughTimesheetEmployer    = "t.user_id IN (SELECT ec.user_id FROM employment_contracts ec WHERE %s)"
	throughUserGroups           = "u.id IN (SELECT ug.user_id FROM user_groups ug WHERE %s)"
	throughUserContracts        = "u.id IN (SELECT cu.user_id FROM contract_users cu WHERE %s)"
	throughContractGroups       = "c.id IN (SELECT ccg.contract_id FROM contract_contract_groups ccg WHERE %s)"
	throughContractUsers        = "c.id IN (SELECT cu.contract_id FROM contract_users cu WHERE %s)"

	internalCustomer    = "c.customer_id IN (SELECT id FROM companies WHERE internal = 1)"
	nonInternalCustomer = "c.customer_id NOT IN (SELECT id FROM companies WHERE internal = 1)"
)

var contractKindChoices = []Choice{
	{Value: "projectcontract", Label: "Project"},
	{Value: "consultancycontract", Label: "Consultancy"},
	{Value: "supportcontract", Label: "Support"},
}

var timesheetStatusChoices = []Choice{
	{Value: "active", Label: "Active"},
	{Value: "pending", Label: "Pending"},
	{Value: "closed", Label: "Closed"},
}

func monthChoices() []Choice {
	out := make([]Choice, 0, 12)
	for month := 1; month <= 12; month++ {
		value := strconv.Itoa(month)
		out = append(out, Choice{Value: value, Label: value})
	}
	return out
}

func activeUserFilter(field string, multiple bool) Filter {
	filter := Filter{Param: "user", Label: "User", Field: field, Source: SourceActiveUsers, Lookup: LookupExact, Kind: KindModelChoice}
	if multiple {
		filter.Lookup = LookupIn
		filter.Kind = KindModelMultipleChoice
		filter.Distinct = true
	}
	return filter
}

func dateFilter(param, label, field string, lookup Lookup) Filter {
	return Filter{Param: param, Label: label, Field: field, Lookup: lookup, Kind: KindDate}
}

func unboundDate(param, label string) Filter {
	return Filter{Param: param, Label: label, Lookup: LookupExact, Kind: KindDate, Unbound: true}
}

func userGroupFilter() Filter {
	return Filter{Param: "group", Label: "Group", Field: "ug.group_id", Through: throughUserGroups, Source: SourceGroups, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true}
}

func userContractFilter() Filter {
	return Filter{Param: "contract", Label: "Contract", Field: "cu.contract_id", Through: throughUserContracts, Source: SourceActiveContracts, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true}
}

func internalContractFilters() []Filter {
	return []Filter{
		{Param: "company", Label: "Company", Field: "c.company_id", Source: SourceInternalCompanies, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true},
		{
			Param:      "filter_internal",
			Label:      "Filter internal contracts",
			Kind:       KindChoice,
			Lookup:     LookupExact,
			EmptyLabel: "Show all project",
			Choices: []Choice{
				{Value: "show_noninternal", Label: "Show only non-internal consultancy contracts"},
				{Value: "show_internal", Label: "Show only internal consultancy contracts"},
			},
			Clauses: map[string]string{
				"show_noninternal": nonInternalCustomer,
				"show_internal":    internalCustomer,
			},
		},
	}
}

var sets = []FilterSet{
	{
		Name:  "timesheet_contract_overview",
		Title: "Timesheet contract overview",
		Model: ModelTimesheet,
		Filters: []Filter{
			{Param: "contract", Label: "Contract", Field: "p.contract_id", Through: throughPerformanceContracts, Source: SourceActiveContracts, Lookup: LookupIn, Kind: KindModelMultipleChoice},
			{Param: "contract_type", Label: "Contract type", Field: "c.kind", Through: throughPerformanceContracts, Choices: contractKindChoices, Lookup: LookupIn, Kind: KindMultipleChoice, Distinct: true},
			{Param: "contract_customer", Label: "Contract customer", Field: "c.customer_id", Through: throughPerformanceContracts, Source: SourceCompanies, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true},
			{Param: "contract_company", Label: "Contract company", Field: "c.company_id", Through: throughPerformanceContracts, Source: SourceInternalCompanies, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true},
			{Param: "contract_group", Label: "Contract group", Field: "ccg.contract_group_id", Through: throughPerformanceGroups, Source: SourceContractGroups, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true},
			{Param: "month", Label: "Month", Field: "t.month", Choices: monthChoices(), Lookup: LookupIn, Kind: KindMultipleChoice},
			{Param: "year", Label: "Year", Field: "t.year", Source: SourceTimesheetYears, Lookup: LookupIn, Kind: KindMultipleChoice},
			activeUserFilter("t.user_id", true),
			{Param: "user_company", Label: "User company", Field: "ec.company_id", Through: throughTimesheetEmployer, Source: SourceInternalCompanies, Lookup: LookupExact, Kind: KindModelChoice, Distinct: true},
			{Param: "status", Label: "Status", Field: "t.status", Choices: timesheetStatusChoices, Lookup: LookupExact, Kind: KindChoice},
		},
	},
	{
		Name:  "timesheet_overview",
		Title: "Timesheet overview",
		Model: ModelTimesheet,
		Filters: []Filter{
			activeUserFilter("t.user_id", false),
			{Param: "user_company", Label: "Company", Field: "ec.company_id", Through: throughTimesheetEmployer, Source: SourceInternalCompanies, Lookup: LookupExact, Kind: KindModelChoice, Distinct: true},
			{Param: "status", Label: "Status", Field: "t.status", Choices: timesheetStatusChoices, Lookup: LookupExact, Kind: KindChoice},
			{Param: "year", Label: "Year", Field: "t.year", Source: SourceTimesheetYears, Lookup: LookupExact, Kind: KindChoice},
			{Param: "month", Label: "Month", Field: "t.month", Source: SourceTimesheetMonths, Lookup: LookupExact, Kind: KindChoice},
		},
	},
	{
		Name:  "user_range_info",
		Title: "User range info",
		Model: ModelTimesheet,
		Filters: []Filter{
			activeUserFilter("t.user_id", false),
			unboundDate("from_date", "From"),
			unboundDate("until_date", "Until"),
		},
	},
	{
		Name:  "user_leave_overview",
		Title: "User leave overview",
		Model: ModelLeaveDate,
		Filters: []Filter{
			activeUserFilter("l.user_id", false),
			dateFilter("from_date", "From", "ld.starts_at", LookupGTE),
			dateFilter("until_date", "Until", "ld.starts_at", LookupLTE),
		},
	},
	{
		Name:  "user_work_ratio_by_user",
		Title: "User work ratio by user",
		Model: ModelTimesheet,
		Filters: []Filter{
			activeUserFilter("t.user_id", false),
			{Param: "year", Label: "Year", Field: "t.year", Source: SourceTimesheetYears, Lookup: LookupIn, Kind: KindMultipleChoice},
		},
	},
	{
		Name:  "user_work_ratio_by_month",
		Title: "User work ratio by month",
		Model: ModelTimesheet,
		Filters: []Filter{
			{Param: "year", Label: "Year", Field: "t.year", Source: SourceTimesheetYears, Lookup: LookupExact, Kind: KindChoice, Initial: "2019"},
			{Param: "month", Label: "Month", Field: "t.month", Choices: monthChoices(), Lookup: LookupExact, Kind: KindChoice},
		},
	},
	{
		Name:  "user_work_ratio_overview",
		Title: "User work ratio overview",
		Model: ModelTimesheet,
		Filters: []Filter{
			activeUserFilter("t.user_id", false),
			{Param: "year", Label: "Year", Field: "t.year", Source: SourceTimesheetYears, Lookup: LookupExact, Kind: KindChoice},
		},
	},
	{
		Name:  "resource_availability_overview",
		Title: "Resource availability overview",
		Model: ModelUser,
		Filters: []Filter{
			activeUserFilter("u.id", true),
			userGroupFilter(),
			userContractFilter(),
			unboundDate("from_date", "From"),
			unboundDate("until_date", "Until"),
		},
	},
	{
		Name:  "internal_availability_overview",
		Title: "Internal availability overview",
		Model: ModelUser,
		Filters: []Filter{
			activeUserFilter("u.id", true),
			userGroupFilter(),
			userContractFilter(),
			unboundDate("date", "Date"),
		},
	},
	{
		Name:  "timesheet_monthly_overview",
		Title: "Timesheet monthly overview",
		Model: ModelUser,
		Filters: []Filter{
			activeUserFilter("u.id", true),
			userGroupFilter(),
			unboundDate("base_date", "Month"),
		},
	},
	{
		Name:    "expiring_consultancy_contract_overview",
		Title:   "Expiring consultancy contract overview",
		Model:   ModelConsultancyContract,
		Filters: internalContractFilters(),
	},
	{
		Name:  "project_contract_overview",
		Title: "Project contract overview",
		Model: ModelProjectContract,
		Filters: []Filter{
			{Param: "contract", Label: "Contract", Field: "c.id", Source: SourceActiveProjectContracts, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true},
			{Param: "name", Label: "Name", Field: "c.name", Lookup: LookupIContains, Kind: KindText},
			{Param: "contract_group", Label: "Contract groups", Field: "ccg.contract_group_id", Through: throughContractGroups, Source: SourceContractGroups, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true},
			{Param: "company", Label: "Company", Field: "c.company_id", Source: SourceInternalCompanies, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true},
			{Param: "customer", Label: "Customer", Field: "c.customer_id", Source: SourceCompanies, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true},
			{Param: "user", Label: "User", Field: "cu.user_id", Through: throughContractUsers, Source: SourceActiveUsers, Lookup: LookupIn, Kind: KindModelMultipleChoice, Distinct: true},
		},
	},
	{
		Name:  "user_overtime_overview",
		Title: "User overtime overview",
		Model: ModelLeaveDate,
		Filters: []Filter{
			activeUserFilter("l.user_id", false),
			dateFilter("from_date", "From", "ld.starts_at", LookupGTE),
			dateFilter("until_date", "Until", "ld.starts_at", LookupLTE),
		},
	},
	{
		Name:    "expiring_support_contract_overview",
		Title:   "Expiring support contract overview",
		Model:   ModelSupportContract,
		Filters: internalContractFilters(),
	},
	{
		Name:  "invoiced_consultancy_contract_overview",
		Title: "Invoiced consultancy contract overview",
		Model: ModelConsultancyContract,
		Filters: []Filter{
			{Param: "company", Label: "Company", Field: "c.company_id", Source: SourceCompanies, Lookup: LookupExact, Kind: KindModelChoice},
			unboundDate("from_date", "From"),
			unboundDate("until_date", "Until"),
		},
	},
	{
		Name:  "expiring_user_training_overview",
		Title: "Expiring user training overview",
		Model: ModelTraining,
		Filters: []Filter{
			dateFilter("ends_at_lte", "Ends before", "tr.ends_at", LookupLTE),
		},
	},
}
