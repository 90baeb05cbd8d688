package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gorilla/websocket"

	"github.com/kazz187/taskboard/internal/channel"
	"github.com/kazz187/taskboard/internal/client"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/color"
)

var (
	app       = kingpin.New("taskboard", "Command line client for the taskboard server")
	serverURL = app.Flag("server", "Server base URL").Envar("TASKBOARD_SERVER_URL").Default("http://localhost:5000").String()
	noColor   = app.Flag("no-color", "Disable colored output").Envar("NO_COLOR").Bool()
	timeout   = app.Flag("timeout", "Request timeout").Default("10s").Duration()

	listCmd = app.Command("list", "List all tasks")

	showCmd = app.Command("show", "Show one task")
	showID  = showCmd.Arg("id", "Task ID").Required().String()

	createCmd         = app.Command("create", "Create a task")
	createTitle       = createCmd.Arg("title", "Task title").Required().String()
	createDescription = createCmd.Arg("description", "Task description").Required().String()
	createPriority    = createCmd.Flag("priority", "Priority").String()
	createCategory    = createCmd.Flag("category", "Category").String()
	createStatus      = createCmd.Flag("status", "Status column").Default("todo").String()

	updateCmd         = app.Command("update", "Update fields of a task")
	updateID          = updateCmd.Arg("id", "Task ID").Required().String()
	updateTitle       = updateCmd.Flag("title", "New title").IsSetByUser(&titleSet).String()
	updateDescription = updateCmd.Flag("description", "New description").IsSetByUser(&descriptionSet).String()
	updatePriority    = updateCmd.Flag("priority", "New priority").IsSetByUser(&prioritySet).String()
	updateCategory    = updateCmd.Flag("category", "New category").IsSetByUser(&categorySet).String()
	updateStatus      = updateCmd.Flag("status", "New status").IsSetByUser(&statusSet).String()
	updateClear       = updateCmd.Flag("clear", "Reset a field to null (repeatable)").Enums("title", "description", "priority", "category", "status", "attachment")

	titleSet, descriptionSet, prioritySet, categorySet, statusSet bool

	deleteCmd = app.Command("delete", "Delete a task")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()

	moveCmd    = app.Command("move", "Move a task to another column over the push channel")
	moveID     = moveCmd.Arg("id", "Task ID").Required().String()
	moveStatus = moveCmd.Arg("status", "Target status").Required().String()

	attachCmd  = app.Command("attach", "Upload a file and attach it to a task")
	attachID   = attachCmd.Arg("id", "Task ID").Required().String()
	attachFile = attachCmd.Arg("file", "File to upload").Required().ExistingFile()

	watchCmd = app.Command("watch", "Print every push-channel broadcast")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	if *noColor {
		color.Disable()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tasks := client.NewTaskClient(*serverURL, nil)

	var err error
	switch command {
	case listCmd.FullCommand():
		err = handleList(ctx, tasks)
	case showCmd.FullCommand():
		err = handleShow(ctx, tasks, *showID)
	case createCmd.FullCommand():
		err = handleCreate(ctx, tasks)
	case updateCmd.FullCommand():
		err = handleUpdate(ctx, tasks)
	case deleteCmd.FullCommand():
		err = handleDelete(ctx, tasks, *deleteID)
	case moveCmd.FullCommand():
		err = handleMove(ctx, *moveID, *moveStatus)
	case attachCmd.FullCommand():
		err = handleAttach(ctx, tasks, *attachID, *attachFile)
	case watchCmd.FullCommand():
		err = handleWatch(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, *timeout)
}

func handleList(ctx context.Context, c *client.TaskClient) error {
	ctx, cancel := requestContext(ctx)
	defer cancel()

	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\n", t.ID, color.Status(t.Status), t.Priority, t.Title, color.FormatLabel(t.Category))
	}
	return w.Flush()
}

func handleShow(ctx context.Context, c *client.TaskClient, id string) error {
	ctx, cancel := requestContext(ctx)
	defer cancel()

	t, err := c.GetTask(ctx, id)
	if err != nil {
		return err
	}
	printTask(t)
	return nil
}

func printTask(t *task.Task) {
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Description: %s\n", t.Description)
	fmt.Printf("Status:      %s\n", color.Status(t.Status))
	if t.Priority != "" {
		fmt.Printf("Priority:    %s\n", t.Priority)
	}
	if t.Category != "" {
		fmt.Printf("Category:    %s\n", color.FormatLabel(t.Category))
	}
	if t.Attachment != nil {
		fmt.Printf("Attachment:  %s\n", *t.Attachment)
	}
}

func handleCreate(ctx context.Context, c *client.TaskClient) error {
	ctx, cancel := requestContext(ctx)
	defer cancel()

	t, err := c.CreateTask(ctx, &task.CreateTaskRequest{
		Title:       *createTitle,
		Description: *createDescription,
		Priority:    *createPriority,
		Category:    *createCategory,
		Status:      *createStatus,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created task %s\n", t.ID)
	printTask(t)
	return nil
}

func handleUpdate(ctx context.Context, c *client.TaskClient) error {
	patch := &task.Patch{}
	set := func(isSet bool, dst **string, v string) {
		if isSet {
			*dst = &v
		}
	}
	set(titleSet, &patch.Title, *updateTitle)
	set(descriptionSet, &patch.Description, *updateDescription)
	set(prioritySet, &patch.Priority, *updatePriority)
	set(categorySet, &patch.Category, *updateCategory)
	set(statusSet, &patch.Status, *updateStatus)
	for _, key := range *updateClear {
		patch.Clear(key)
	}
	if patch.IsEmpty() {
		return errors.New("nothing to update: pass at least one of --title, --description, --priority, --category, --status, --clear")
	}

	ctx, cancel := requestContext(ctx)
	defer cancel()

	echoed, err := c.UpdateTask(ctx, *updateID, patch)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(echoed, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("Updated task %s\n%s\n", *updateID, out)
	return nil
}

func handleDelete(ctx context.Context, c *client.TaskClient, id string) error {
	ctx, cancel := requestContext(ctx)
	defer cancel()

	if err := c.DeleteTask(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted task %s\n", id)
	return nil
}

// handleMove sends the move and waits for the server to broadcast it back.
// The server stays silent when the id is unknown, so that case ends in a
// timeout.
func handleMove(ctx context.Context, id, status string) error {
	ctx, cancel := requestContext(ctx)
	defer cancel()

	ch, err := client.DialChannel(ctx, *serverURL)
	if err != nil {
		return err
	}
	defer ch.Close()

	go func() {
		<-ctx.Done()
		_ = ch.Close()
	}()

	if err := ch.Move(id, status); err != nil {
		return err
	}
	for {
		env, err := ch.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("no confirmation for task %s: %w", id, ctx.Err())
			}
			return err
		}
		if env.Event != channel.EventMove {
			continue
		}
		var mv channel.MoveEvent
		if err := json.Unmarshal(env.Data, &mv); err != nil {
			return err
		}
		if mv.ID == id {
			fmt.Printf("Moved task %s to %s\n", id, color.Status(mv.NewStatus))
			return nil
		}
	}
}

func handleAttach(ctx context.Context, c *client.TaskClient, id, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// uploads get a longer budget than plain requests
	ctx, cancel := context.WithTimeout(ctx, *timeout+time.Minute)
	defer cancel()

	t, err := c.UploadAttachment(ctx, id, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Printf("Attached %s to task %s\n", filepath.Base(path), id)
	printTask(t)
	return nil
}

func handleWatch(ctx context.Context) error {
	dialCtx, cancel := requestContext(ctx)
	ch, err := client.DialChannel(dialCtx, *serverURL)
	cancel()
	if err != nil {
		return err
	}
	defer ch.Close()

	go func() {
		<-ctx.Done()
		_ = ch.Close()
	}()

	if err := ch.Sync(); err != nil {
		return err
	}
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", *serverURL)
	for {
		env, err := ch.Receive()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fmt.Printf("%s %s %s\n", time.Now().Format(time.TimeOnly), color.Event(env.Event), env.Data)
	}
}
