package session

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
)

// fragmentRelay is served when the provider returns the token in the URL
// fragment, which never reaches the server. The page re-submits the fragment
// as a query string so the listener can read it.
const fragmentRelay = `<!DOCTYPE html>
<html><body>Completing sign-in...
<script>
  if (window.location.hash.length > 1) {
    window.location.replace("/callback?" + window.location.hash.substring(1));
  } else {
    document.body.textContent = "Sign-in complete. You can close this window.";
  }
</script>
</body></html>`

// CallbackListener captures an OAuth redirect return on a loopback address.
// Browser clients get the token via the page fragment; CLI and other
// non-browser embedders point the provider's redirect at this listener and
// hand the captured URL to Bootstrap.
type CallbackListener struct {
	echo     *echo.Echo
	listener net.Listener
	returns  chan *url.URL
}

// NewCallbackListener binds a loopback listener on the given port (0 picks a
// free one).
func NewCallbackListener(port int) (*CallbackListener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to bind oauth callback listener: %w", err)
	}

	l := &CallbackListener{
		echo:     echo.New(),
		listener: ln,
		returns:  make(chan *url.URL, 1),
	}
	l.echo.HideBanner = true
	l.echo.HidePort = true
	l.echo.GET("/callback", l.handleCallback)

	go func() {
		l.echo.Listener = ln
		_ = l.echo.Start("")
	}()

	return l, nil
}

// RedirectURL is the address to register as the provider's redirect target.
func (l *CallbackListener) RedirectURL() string {
	return fmt.Sprintf("http://%s/callback", l.listener.Addr().String())
}

// Wait blocks until a redirect return arrives or ctx expires.
func (l *CallbackListener) Wait(ctx context.Context) (*url.URL, error) {
	select {
	case u := <-l.returns:
		return u, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the listener down.
func (l *CallbackListener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.echo.Shutdown(ctx)
}

func (l *CallbackListener) handleCallback(c echo.Context) error {
	req := c.Request()
	if len(req.URL.Query()) == 0 {
		// First hit: the token may be in the fragment, relay it into a query.
		return c.HTML(http.StatusOK, fragmentRelay)
	}

	u := *req.URL
	select {
	case l.returns <- &u:
	default:
		// A return was already captured; later hits are ignored.
	}
	return c.HTML(http.StatusOK, "<html><body>Sign-in complete. You can close this window.</body></html>")
}
