// Package notify is the outbound push-notification port. Delivery is
// fire-and-forget from the ingestion pipeline's perspective: errors are
// returned for logging but must never block or fail the occurrence write.
package notify

import (
	"fmt"
	"io"
	"log"
	"net/url"
	"strconv"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"alpr-service/internal/config"
)

type Notifier interface {
	Notify(plateNumber string, priority int, imageData *string) error
}

// PushoverNotifier delivers watch alerts through shoutrrr's pushover service.
type PushoverNotifier struct {
	sender *router.ServiceRouter
	title  string
}

func NewPushoverNotifier(cfg config.PushoverConfig) (*PushoverNotifier, error) {
	serviceURL := fmt.Sprintf("pushover://shoutrrr:%s@%s/?priority=%d&sounds=%s",
		cfg.AppToken, cfg.UserKey, cfg.Priority, url.QueryEscape(cfg.Sound))

	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("create pushover sender: %w", err)
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &PushoverNotifier{sender: sender, title: cfg.Title}, nil
}

func (n *PushoverNotifier) Notify(plateNumber string, priority int, _ *string) error {
	body := fmt.Sprintf("Plate %s detected", plateNumber)

	// The per-watch priority overrides the configured default.
	params := stypes.Params{"priority": strconv.Itoa(priority)}
	params.SetTitle(n.title)

	errs := n.sender.Send(body, &params)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Noop is used when push notifications are disabled in config.
type Noop struct{}

func (Noop) Notify(string, int, *string) error { return nil }
