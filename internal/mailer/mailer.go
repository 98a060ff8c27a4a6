package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

// ErrDelivery wraps provider rejections, network failures, and expired send
// deadlines. The pipeline treats delivery as fire-and-forget: no retry, no
// dead-letter queue.
var ErrDelivery = errors.New("transcript email delivery failed")

const subjectFormat = "Your Story Transcript – %s"

var htmlBody = template.Must(template.New("transcript").Parse(
	`<p>Thank you for submitting your story!</p>
<p>Here is the transcript of <strong>{{.Title}}</strong>:</p>
<blockquote style="white-space: pre-wrap;">{{.Transcript}}</blockquote>
<p>– The Goodbye Cycle team</p>
`))

// Sender delivers transcript emails over SMTP. gomail only bounds the TCP
// dial, so every send runs under an explicit deadline; a server that accepts
// the connection and stalls cannot hang the request goroutine.
type Sender struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
}

func New(host string, port int, username, password, from string, timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Sender{
		dialer:  gomail.NewDialer(host, port, username, password),
		from:    from,
		timeout: timeout,
	}
}

// SendTranscript emails the verbatim transcript to one recipient. The
// transcript is embedded as-is, however long it is. One attempt, bounded by
// the caller's context and the sender's own deadline.
func (s *Sender) SendTranscript(ctx context.Context, email, title, transcript string) error {
	var html bytes.Buffer
	data := struct{ Title, Transcript string }{Title: title, Transcript: transcript}
	if err := htmlBody.Execute(&html, data); err != nil {
		return fmt.Errorf("%w: render body: %v", ErrDelivery, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf(subjectFormat, title))
	m.SetBody("text/plain", fmt.Sprintf(
		"Thank you for submitting your story!\n\nHere is the transcript of %q:\n\n%s\n", title, transcript))
	m.AddAlternative("text/html", html.String())

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dialer.DialAndSend(m)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrDelivery, ctx.Err())
	}
}
