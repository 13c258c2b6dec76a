package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/storyx/internal/models"
)

var (
	_ list.Item = authorItem{}
)

// authorItem wraps [models.AuthorGroup] to implement [list.Item].
type authorItem struct {
	group models.AuthorGroup
	seen  bool // The session has already moved past this author
}

func (i authorItem) FilterValue() string { return i.group.Author.Handle() }
func (i authorItem) Title() string       { return i.group.Author.DisplayName() }
func (i authorItem) Description() string {
	desc := fmt.Sprintf("@%s • %d stories", i.group.Author.Handle(), len(i.group.Items))
	if i.seen {
		desc += " • seen"
	}
	return desc
}

// authorItems converts groups to picker items, marking authors before current as seen.
func authorItems(groups []models.AuthorGroup, current int) []list.Item {
	items := make([]list.Item, len(groups))
	for i, g := range groups {
		items[i] = authorItem{group: g, seen: i < current}
	}
	return items
}
