package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// Message is one feeding reminder.
type Message struct {
	Title string
	Body  string
}

// Notifier delivers reminders.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// ShoutrrrNotifier sends reminders to every configured shoutrrr URL
// (ntfy, telegram, discord, smtp and the rest).
type ShoutrrrNotifier struct {
	urls   []string
	sender *router.ServiceRouter
}

// NewShoutrrrNotifier validates urls and builds one sender for all of them.
func NewShoutrrrNotifier(urls []string, timeout time.Duration) (*ShoutrrrNotifier, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one notification URL is required")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("create notification sender: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrNotifier{urls: slices.Clone(urls), sender: sender}, nil
}

func (s *ShoutrrrNotifier) Name() string { return "shoutrrr" }

// Notify sends msg and returns the first delivery error.
func (s *ShoutrrrNotifier) Notify(_ context.Context, msg Message) error {
	params := stypes.Params{}
	if msg.Title != "" {
		params.SetTitle(msg.Title)
	}
	for _, err := range s.sender.Send(msg.Body, &params) {
		if err != nil {
			return fmt.Errorf("send reminder: %w", err)
		}
	}
	return nil
}

// LogNotifier writes reminders to the log. Used when no URLs are set.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier returns a notifier logging through logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{log: logger.With("module", "reminder")}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Notify(_ context.Context, msg Message) error {
	l.log.Info(msg.Title, "details", msg.Body)
	return nil
}
