package board

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/boardlock/boardlock/internal/client"
	"github.com/boardlock/boardlock/internal/model"
	"github.com/boardlock/boardlock/internal/policy"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrNotAllowed  = errors.New("role not allowed")
	ErrNoEdit      = errors.New("no task in edit mode")
)

// Confirmer is the blocking human confirmation step in front of a delete.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmerFunc func(prompt string) bool

func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// Draft holds the in-progress edit of a task's content.
type Draft struct {
	Title       string
	Description string
}

// Controller drives the board: it reads the role from the session, asks the
// policy what the user may do, and only then issues mutations through the
// sync client. At most one task is in edit mode at a time.
type Controller struct {
	client  *client.Client
	confirm Confirmer
	session SessionStore
	logger  *zap.Logger

	mu       sync.Mutex
	user     model.User
	loggedIn bool
	editing  string // task id, empty when nothing is being edited
	draft    Draft
}

func NewController(c *client.Client, confirm Confirmer, session SessionStore, logger *zap.Logger) *Controller {
	return &Controller{
		client:  c,
		confirm: confirm,
		session: session,
		logger:  logger,
	}
}

// Login authenticates against the store and persists the session claim.
// All three identity fields are required.
func (b *Controller) Login(ctx context.Context, user model.User) error {
	if strings.TrimSpace(user.Name) == "" || strings.TrimSpace(user.Email) == "" || user.Role == "" {
		return errors.New("name, email and role are required")
	}

	confirmed, err := b.client.Login(ctx, user)
	if err != nil {
		return err
	}

	if err := b.session.Save(confirmed, b.client.Token()); err != nil {
		b.logger.Error("failed to persist session", zap.Error(err))
	}

	b.mu.Lock()
	b.user = confirmed
	b.loggedIn = true
	b.mu.Unlock()
	return nil
}

// Resume restores a persisted session, if one exists.
func (b *Controller) Resume() bool {
	user, token, ok := b.session.Load()
	if !ok {
		return false
	}

	b.client.SetToken(token)
	b.mu.Lock()
	b.user = user
	b.loggedIn = true
	b.mu.Unlock()
	return true
}

// Logout erases the session and resets any edit state.
func (b *Controller) Logout() {
	b.session.Clear()
	b.client.Logout()

	b.mu.Lock()
	b.user = model.User{}
	b.loggedIn = false
	b.editing = ""
	b.draft = Draft{}
	b.mu.Unlock()
}

func (b *Controller) User() (model.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user, b.loggedIn
}

// Capabilities is what the render layer consults before attaching handlers.
func (b *Controller) Capabilities() policy.Capabilities {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loggedIn {
		return policy.Capabilities{}
	}
	return policy.For(b.user.Role)
}

// Draggable reports whether task cards get drag handlers at all. A role
// without the move capability never produces a drop event.
func (b *Controller) Draggable() bool {
	return b.Capabilities().Move
}

// Mount loads the board once.
func (b *Controller) Mount(ctx context.Context) error {
	return b.client.Load(ctx)
}

// Columns groups the cached tasks for rendering.
func (b *Controller) Columns() map[model.Status][]model.Task {
	return b.client.ByStatus()
}

// Tasks returns the cache in arrival order.
func (b *Controller) Tasks() []model.Task {
	return b.client.Snapshot()
}

// StartEdit switches a task to edit mode, capturing its current content as
// the draft. Starting an edit while another task is in edit mode replaces
// that edit, keeping a single editor board-wide.
func (b *Controller) StartEdit(id string) error {
	if !b.Capabilities().EditDelete {
		return ErrNotAllowed
	}

	task, ok := b.client.Get(id)
	if !ok {
		return errors.New("unknown task")
	}

	b.mu.Lock()
	b.editing = id
	b.draft = Draft{Title: task.Title, Description: task.Description}
	b.mu.Unlock()
	return nil
}

// Editing returns the id of the task in edit mode, if any.
func (b *Controller) Editing() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editing, b.editing != ""
}

func (b *Controller) SetDraft(title, description string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editing == "" {
		return ErrNoEdit
	}
	b.draft = Draft{Title: title, Description: description}
	return nil
}

func (b *Controller) DraftValue() Draft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft
}

// SaveEdit submits the draft and leaves edit mode whether or not the update
// succeeded. A failed save discards the draft; the user re-enters it.
func (b *Controller) SaveEdit(ctx context.Context) error {
	b.mu.Lock()
	if b.editing == "" {
		b.mu.Unlock()
		return ErrNoEdit
	}
	id := b.editing
	draft := b.draft
	b.editing = ""
	b.draft = Draft{}
	b.mu.Unlock()

	patch := model.TaskPatch{Title: &draft.Title, Description: &draft.Description}
	_, err := b.client.Update(ctx, id, patch)
	return err
}

// CancelEdit discards the draft without a store call.
func (b *Controller) CancelEdit() {
	b.mu.Lock()
	b.editing = ""
	b.draft = Draft{}
	b.mu.Unlock()
}

// Move handles a drop into a column. For roles without the move capability
// the drop is a silent no-op: no handlers, no network call.
func (b *Controller) Move(ctx context.Context, id string, status model.Status) error {
	if !b.Capabilities().Move {
		return nil
	}
	_, err := b.client.Move(ctx, id, status)
	return err
}

// Create fires the create flow. An empty trimmed title is silently ignored;
// the server validates again in case that is ever bypassed.
func (b *Controller) Create(ctx context.Context, title, description string) error {
	if !b.Capabilities().Create {
		return ErrNotAllowed
	}
	if strings.TrimSpace(title) == "" {
		return nil
	}
	_, err := b.client.Create(ctx, title, description)
	return err
}

// Delete asks for confirmation before the call fires. The confirmation is
// blocking with respect to the rest of the controller.
func (b *Controller) Delete(ctx context.Context, id string) error {
	if !b.Capabilities().EditDelete {
		return ErrNotAllowed
	}

	b.mu.Lock()
	ok := b.confirm.Confirm("Delete this task?")
	b.mu.Unlock()
	if !ok {
		return nil
	}

	return b.client.Delete(ctx, id)
}
