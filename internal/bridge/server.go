package bridge

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/browser"

	"github.com/simonvc/fundcard/internal/fund"
	"github.com/simonvc/fundcard/internal/logging"
)

//go:embed static/popup.html
var popupHTML string

var popupTmpl = template.Must(template.New("popup").Parse(popupHTML))

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// DefaultConnectTimeout bounds how long a launched page has to report back
// before the popup is treated as blocked.
const DefaultConnectTimeout = 30 * time.Second

// Launcher opens a URL in the user's browser.
type Launcher func(url string) error

// Bridge opens checkout popups in the user's browser. Each popup is a small
// loopback page that opens the checkout window, watches it and reports back
// over a websocket. Bridge implements fund.Opener.
type Bridge struct {
	router         chi.Router
	logger         *log.Logger
	launch         Launcher
	connectTimeout time.Duration

	mu      sync.Mutex
	baseURL string
	popups  map[string]*popup
	events  chan Event
	done    chan struct{}
}

type Option func(*Bridge)

func WithLogger(l *log.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithLauncher replaces the system browser launcher.
func WithLauncher(fn Launcher) Option {
	return func(b *Bridge) { b.launch = fn }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.connectTimeout = d }
}

func New(opts ...Option) *Bridge {
	b := &Bridge{
		launch:         openBrowser,
		connectTimeout: DefaultConnectTimeout,
		popups:         map[string]*popup{},
		events:         make(chan Event, 64),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.Or(b.logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/popup/{id}", b.handlePopup)
	r.Get("/popup/{id}/ws", b.handleWebSocket)
	r.Get("/health", b.handleHealth)
	b.router = r
	return b
}

func openBrowser(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}

// Handler returns the bridge's HTTP routes.
func (b *Bridge) Handler() http.Handler { return b.router }

// SetBaseURL sets the address the browser reaches the bridge on. Serve sets
// it from the listener.
func (b *Bridge) SetBaseURL(u string) {
	b.mu.Lock()
	b.baseURL = u
	b.mu.Unlock()
}

// Events delivers popup activity. The session owner drains it and forwards
// messages to its relay.
func (b *Bridge) Events() <-chan Event { return b.events }

// Serve serves the bridge on ln until ctx is done.
func (b *Bridge) Serve(ctx context.Context, ln net.Listener) error {
	b.SetBaseURL("http://" + ln.Addr().String())
	srv := &http.Server{Handler: b.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	b.logger.Info("popup bridge listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		b.closeAll()
		close(b.done)
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Open registers a popup for checkoutURL and launches its page in the
// browser. If the browser cannot be launched the popup is blocked.
func (b *Bridge) Open(ctx context.Context, checkoutURL string, size fund.PopupSize) (fund.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	base := b.baseURL
	b.mu.Unlock()
	if base == "" {
		return nil, fmt.Errorf("%w: bridge is not serving", fund.ErrPopupUnavailable)
	}

	p := newPopup(b, uuid.New().String(), checkoutURL, size)
	b.mu.Lock()
	b.popups[p.id] = p
	b.mu.Unlock()

	pageURL := base + "/popup/" + p.id
	if err := b.launch(pageURL); err != nil {
		b.remove(p.id)
		b.logger.Warn("popup launch failed", "popup", p.id, "err", err)
		return nil, fmt.Errorf("%w: %w", fund.ErrPopupBlocked, err)
	}
	if b.connectTimeout > 0 {
		p.watchdog = time.AfterFunc(b.connectTimeout, func() {
			if !p.isConnected() {
				b.logger.Warn("popup page never connected", "popup", p.id)
				p.finish(fund.ErrPopupBlocked)
			}
		})
	}
	b.logger.Info("popup opened", "popup", p.id, "url", fund.RedactURL(checkoutURL), "width", size.Width, "height", size.Height)
	return p, nil
}

func (b *Bridge) lookup(id string) (*popup, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.popups[id]
	return p, ok
}

func (b *Bridge) remove(id string) {
	b.mu.Lock()
	delete(b.popups, id)
	b.mu.Unlock()
}

func (b *Bridge) closeAll() {
	b.mu.Lock()
	popups := make([]*popup, 0, len(b.popups))
	for _, p := range b.popups {
		popups = append(popups, p)
	}
	b.mu.Unlock()
	for _, p := range popups {
		_ = p.Close()
	}
}

// publish delivers ev in order. It gives up once the bridge shuts down.
func (b *Bridge) publish(ev Event) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

func (b *Bridge) handleHealth(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	n := len(b.popups)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Popups: n})
}

type pageData struct {
	ID          string
	CheckoutURL string
	Width       int
	Height      int
}

func (b *Bridge) handlePopup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !uuidRe.MatchString(id) {
		http.Error(w, "invalid popup id", http.StatusBadRequest)
		return
	}
	p, ok := b.lookup(id)
	if !ok {
		http.Error(w, "popup not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err := popupTmpl.Execute(w, pageData{
		ID:          p.id,
		CheckoutURL: p.checkoutURL,
		Width:       p.size.Width,
		Height:      p.size.Height,
	})
	if err != nil {
		b.logger.Error("render popup page", "popup", id, "err", err)
	}
}
