package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// Shoutrrr sends alerts to every configured service URL (slack://, teams://,
// smtp://, generic://...).
type Shoutrrr struct {
	sender *router.ServiceRouter
}

func NewShoutrrr(urls []string, timeout time.Duration) (*Shoutrrr, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one notification URL is required")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		// the raw error can echo tokens embedded in the URL
		return nil, errors.New("invalid notification URL")
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &Shoutrrr{sender: sender}, nil
}

func (s *Shoutrrr) Notify(_ context.Context, alert Alert) error {
	params := types.Params{}
	params.SetTitle(fmt.Sprintf("Safety alert: %s", alert.Title))

	for _, err := range s.sender.Send(alert.Message(), &params) {
		if err != nil {
			return fmt.Errorf("notification delivery failed: %w", err)
		}
	}
	return nil
}

func (s *Shoutrrr) Close() {}
