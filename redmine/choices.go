package redmine

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// EmptyChoiceLabel is the placeholder of the "no selection" entry.
const EmptyChoiceLabel = "-----------"

// Choice is a selectable Redmine object. ID is nil for the empty entry.
type Choice struct {
	ID    *int64 `json:"id"`
	Label string `json:"label"`
}

// UserChoices lists Redmine users as "First Last [login, mail]". A nil client
// yields only the empty entry.
func UserChoices(ctx context.Context, client Client) ([]Choice, error) {
	choices := []Choice{{Label: EmptyChoiceLabel}}
	if client == nil {
		return choices, nil
	}

	users, err := client.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list redmine users: %w", err)
	}
	items := make([]Choice, 0, len(users))
	for _, user := range users {
		id := user.ID
		items = append(items, Choice{
			ID:    &id,
			Label: fmt.Sprintf("%s %s [%s, %s]", user.Firstname, user.Lastname, user.Login, user.Mail),
		})
	}
	return append(choices, sortChoices(items)...), nil
}

func ProjectChoices(ctx context.Context, client Client) ([]Choice, error) {
	choices := []Choice{{Label: EmptyChoiceLabel}}
	if client == nil {
		return choices, nil
	}

	projects, err := client.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list redmine projects: %w", err)
	}
	items := make([]Choice, 0, len(projects))
	for _, project := range projects {
		id := project.ID
		items = append(items, Choice{ID: &id, Label: project.Name})
	}
	return append(choices, sortChoices(items)...), nil
}

func sortChoices(items []Choice) []Choice {
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Label) < strings.ToLower(items[j].Label)
	})
	return items
}
