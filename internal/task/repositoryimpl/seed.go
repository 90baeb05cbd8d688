package repositoryimpl

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskboard/internal/idgen"
	"github.com/kazz187/taskboard/internal/task"
)

// SeedExamples returns one example task per default column.
func SeedExamples(gen idgen.Generator) []*task.Task {
	return []*task.Task{
		{
			ID:          gen.Next(),
			Title:       "Example Task A",
			Description: "This is a sample task in To Do",
			Priority:    "Medium",
			Category:    "Feature",
			Status:      "todo",
		},
		{
			ID:          gen.Next(),
			Title:       "Example Task B",
			Description: "This is in progress task",
			Priority:    "High",
			Category:    "Bug",
			Status:      "in-progress",
		},
		{
			ID:          gen.Next(),
			Title:       "Example Task C",
			Description: "Completed task example",
			Priority:    "Low",
			Category:    "Enhancement",
			Status:      "done",
		},
	}
}

type seedFile struct {
	Tasks []*task.Task `yaml:"tasks"`
}

// LoadSeedFile reads a YAML document of the form
//
//	tasks:
//	  - title: Write docs
//	    description: ...
//	    status: todo
//
// Tasks without an id get one from gen. Title and description are required,
// the same as for tasks created over the REST API.
func LoadSeedFile(path string, gen idgen.Generator) ([]*task.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed file %s: %w", path, err)
	}
	for i, t := range f.Tasks {
		if t == nil {
			return nil, fmt.Errorf("seed file %s: task #%d is empty", path, i+1)
		}
		if t.Title == "" || t.Description == "" {
			return nil, fmt.Errorf("seed file %s: task #%d: title and description are required", path, i+1)
		}
		if t.ID == "" {
			t.ID = gen.Next()
		}
	}
	return f.Tasks, nil
}

// Seed inserts tasks in order and stops at the first failure.
func Seed(ctx context.Context, repo task.Repository, tasks []*task.Task) error {
	for _, t := range tasks {
		if err := repo.Insert(ctx, t); err != nil {
			return fmt.Errorf("failed to seed task %s: %w", t.ID, err)
		}
	}
	return nil
}
