package tui

import (
	"strings"

	"tache-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
)

type taskItem struct {
	task model.Task
}

func (i taskItem) Title() string {
	mark := "[ ]"
	if i.task.Done {
		mark = "[x]"
	}
	line := mark + " " + i.task.Title
	if d := strings.TrimSpace(i.task.Description); d != "" {
		line += "  · " + d
	}
	return line
}

func (i taskItem) Description() string { return i.task.Description }
func (i taskItem) FilterValue() string { return i.task.Title }

func taskItems(tasks []model.Task) []list.Item {
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskItem{task: t})
	}
	return items
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, newTaskItemDelegate(), 0, 0)
	l.Title = title
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.SetShowFilter(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	return l
}
