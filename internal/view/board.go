package view

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
)

// Messages shown in the .new-idea-messages region.
const (
	MessageBlank   = "Title and/or body cannot be blank."
	MessageNetwork = "Could not reach the server, please try again."
)

// Repository is the client-side view of the API.
type Repository interface {
	ListAll(ctx context.Context) ([]domain.Idea, error)
	Create(ctx context.Context, title, body string) (domain.Idea, error)
	Update(ctx context.Context, id int64, patch domain.IdeaPatch) (domain.Idea, error)
	Remove(ctx context.Context, id int64) error
}

// Actions are the capabilities bound to one rendered idea.
type Actions interface {
	Promote(ctx context.Context) error
	Demote(ctx context.Context) error
	Remove(ctx context.Context) error
	Render() *html.Node
}

// Board keeps a document's .ideas container in step with the server.
//
// The mutex guards the node tree only. Requests run unlocked, so when two
// actions on one idea overlap the response that lands last wins.
type Board struct {
	repo Repository

	mu         sync.Mutex
	doc        *html.Node
	container  *html.Node
	messages   *html.Node
	titleInput *html.Node
	bodyInput  *html.Node
	views      map[int64]*IdeaView
}

// NewBoard binds to an existing page document. It needs the .ideas
// container, the .new-idea-messages region and both form inputs.
func NewBoard(repo Repository, doc *html.Node) (*Board, error) {
	b := &Board{
		repo:       repo,
		doc:        doc,
		container:  findClass(doc, "ideas"),
		messages:   findClass(doc, "new-idea-messages"),
		titleInput: findClass(doc, "new-idea-title"),
		bodyInput:  findClass(doc, "new-idea-body"),
		views:      make(map[int64]*IdeaView),
	}

	var missing []string
	for name, n := range map[string]*html.Node{
		".ideas":             b.container,
		".new-idea-messages": b.messages,
		".new-idea-title":    b.titleInput,
		".new-idea-body":     b.bodyInput,
	} {
		if n == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("page is missing %s", strings.Join(missing, ", "))
	}
	return b, nil
}

// NewBlankBoard builds its own minimal document.
func NewBlankBoard(repo Repository) *Board {
	body := element(atom.Body, "")
	body.AppendChild(withText(element(atom.H1, ""), "Idea Box"))

	form := element(atom.Form, "new-idea")
	form.AppendChild(element(atom.Input, "new-idea-title",
		html.Attribute{Key: "type", Val: "text"}, html.Attribute{Key: "name", Val: "idea[title]"}))
	form.AppendChild(element(atom.Input, "new-idea-body",
		html.Attribute{Key: "type", Val: "text"}, html.Attribute{Key: "name", Val: "idea[body]"}))
	form.AppendChild(element(atom.Input, "new-idea-submit",
		html.Attribute{Key: "type", Val: "submit"}, html.Attribute{Key: "value", Val: "Submit Idea"}))
	body.AppendChild(form)
	body.AppendChild(element(atom.Div, "new-idea-messages"))
	body.AppendChild(element(atom.Div, "ideas"))

	doc := &html.Node{Type: html.DocumentNode}
	htmlNode := element(atom.Html, "")
	htmlNode.AppendChild(body)
	doc.AppendChild(htmlNode)

	b, err := NewBoard(repo, doc)
	if err != nil {
		panic(err) // the skeleton above always has every region
	}
	return b
}

// Load replaces the container contents with the server's ideas, prepending
// each in the order received.
func (b *Board) Load(ctx context.Context) error {
	list, err := b.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load ideas: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	removeChildren(b.container)
	b.views = make(map[int64]*IdeaView, len(list))
	for _, idea := range list {
		b.attachLocked(idea)
	}
	return nil
}

// SetInputs fills the creation form.
func (b *Board) SetInputs(title, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	setAttr(b.titleInput, "value", title)
	setAttr(b.bodyInput, "value", body)
}

// Inputs returns the current form values.
func (b *Board) Inputs() (title, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	title, _ = attr(b.titleInput, "value")
	body, _ = attr(b.bodyInput, "value")
	return title, body
}

// Submit sends the form. The message region is cleared first. On success the
// new idea is prepended and the inputs emptied; on failure a message is shown
// and the error returned.
func (b *Board) Submit(ctx context.Context) (*IdeaView, error) {
	b.mu.Lock()
	setText(b.messages, "")
	title, _ := attr(b.titleInput, "value")
	body, _ := attr(b.bodyInput, "value")
	b.mu.Unlock()

	idea, err := b.repo.Create(ctx, title, body)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		msg := MessageNetwork
		if domain.IsValidation(err) {
			msg = MessageBlank
		}
		setText(b.messages, msg)
		return nil, err
	}

	setAttr(b.titleInput, "value", "")
	setAttr(b.bodyInput, "value", "")
	return b.attachLocked(idea), nil
}

// Ideas returns the rendered ideas in display order.
func (b *Board) Ideas() []*IdeaView {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*IdeaView
	for c := b.container.FirstChild; c != nil; c = c.NextSibling {
		for _, v := range b.views {
			if v.node == c {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// Find returns the view for id, or nil.
func (b *Board) Find(id int64) *IdeaView {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.views[id]
}

// Message returns the text of the message region.
func (b *Board) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return strings.TrimSpace(textContent(b.messages))
}

// HTML serialises the whole document.
func (b *Board) HTML() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, b.doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ContainerHTML serialises only the ideas container.
func (b *Board) ContainerHTML() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var buf bytes.Buffer
	for c := b.container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (b *Board) attachLocked(idea domain.Idea) *IdeaView {
	if old, ok := b.views[idea.ID]; ok && old.node.Parent == b.container {
		b.container.RemoveChild(old.node)
	}
	v := &IdeaView{board: b, props: PropsOf(idea)}
	v.node = Render(v.props)
	prepend(b.container, v.node)
	b.views[idea.ID] = v
	return v
}

// IdeaView is one rendered idea bound to its board.
type IdeaView struct {
	board *Board
	props Props
	node  *html.Node
}

var _ Actions = (*IdeaView)(nil)

// ErrDetached is returned when acting on an idea that was already removed.
var ErrDetached = errors.New("idea is no longer on the board")

// Props returns the state the view was last rendered from.
func (v *IdeaView) Props() Props {
	v.board.mu.Lock()
	defer v.board.mu.Unlock()

	return v.props
}

// Render draws the current props into a fresh tree.
func (v *IdeaView) Render() *html.Node {
	return Render(v.Props())
}

// Promote asks the server for the next rating up and redraws in place.
func (v *IdeaView) Promote(ctx context.Context) error {
	return v.setQuality(ctx, v.Props().Quality.Promote())
}

// Demote asks the server for the next rating down and redraws in place.
func (v *IdeaView) Demote(ctx context.Context) error {
	return v.setQuality(ctx, v.Props().Quality.Demote())
}

func (v *IdeaView) setQuality(ctx context.Context, q domain.Quality) error {
	if v.detached() {
		return ErrDetached
	}
	id := v.Props().ID
	idea, err := v.board.repo.Update(ctx, id, domain.IdeaPatch{Quality: &q})
	if err != nil {
		return fmt.Errorf("update idea %d: %w", id, err)
	}
	v.replace(idea)
	return nil
}

// Remove deletes the idea on the server, then detaches its element.
func (v *IdeaView) Remove(ctx context.Context) error {
	if v.detached() {
		return ErrDetached
	}
	id := v.Props().ID
	if err := v.board.repo.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove idea %d: %w", id, err)
	}

	b := v.board
	b.mu.Lock()
	defer b.mu.Unlock()

	if v.node.Parent != nil {
		v.node.Parent.RemoveChild(v.node)
	}
	if b.views[id] == v {
		delete(b.views, id)
	}
	return nil
}

// replace swaps the element for a freshly rendered one at the same position.
func (v *IdeaView) replace(idea domain.Idea) {
	b := v.board
	b.mu.Lock()
	defer b.mu.Unlock()

	v.props = PropsOf(idea)
	fresh := Render(v.props)
	if parent := v.node.Parent; parent != nil {
		parent.InsertBefore(fresh, v.node)
		parent.RemoveChild(v.node)
	}
	v.node = fresh
}

func (v *IdeaView) detached() bool {
	v.board.mu.Lock()
	defer v.board.mu.Unlock()

	return v.node.Parent == nil
}

// HTML serialises the idea's element.
func (v *IdeaView) HTML() (string, error) {
	v.board.mu.Lock()
	defer v.board.mu.Unlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, v.node); err != nil {
		return "", err
	}
	return buf.String(), nil
}
