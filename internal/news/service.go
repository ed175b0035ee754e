package news

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"newsplaces/internal/mail"
	"newsplaces/internal/settings"
	"newsplaces/internal/storage"
	"newsplaces/internal/task/engine"
	logx "newsplaces/pkg/logx"
)

const maxTitleLen = 255

var ErrInvalid = errors.New("invalid news")

// Store persists articles. storage.DB implements it.
type Store interface {
	CreateNews(ctx context.Context, n *storage.News) error
	UpdateNews(ctx context.Context, n *storage.News) error
	GetNews(ctx context.Context, id int64) (storage.News, error)
	ListNews(ctx context.Context) ([]storage.News, error)
	NewsPublishedBetween(ctx context.Context, from, to time.Time) ([]storage.News, error)
}

// Settings is the part of settings.Service the digest needs.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Recipients(ctx context.Context) ([]string, error)
}

type Service struct {
	store    Store
	settings Settings
	mailer   mail.Sender
	from     string
	loc      *time.Location
	now      func() time.Time
	log      logx.Logger
}

type Option func(*Service)

// WithLocation sets the zone that defines "today" for the digest.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFrom sets the digest sender address.
func WithFrom(from string) Option {
	return func(s *Service) { s.from = strings.TrimSpace(from) }
}

func New(store Store, set Settings, mailer mail.Sender, log logx.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: set,
		mailer:   mailer,
		loc:      time.Local,
		now:      time.Now,
		log:      log.With(logx.String("comp", "news")),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func validate(n *storage.News) error {
	title := strings.TrimSpace(n.Title)
	switch {
	case title == "":
		return fmt.Errorf("%w: title required", ErrInvalid)
	case utf8.RuneCountInString(title) > maxTitleLen:
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalid, maxTitleLen)
	case len(n.MainImage) == 0:
		return fmt.Errorf("%w: main image required", ErrInvalid)
	}
	return nil
}

// Create stores n and derives its preview. A preview failure is logged; the
// article is still saved.
func (s *Service) Create(ctx context.Context, n *storage.News) error {
	if err := validate(n); err != nil {
		return err
	}
	n.PreviewImage = s.preview(n)
	if err := s.store.CreateNews(ctx, n); err != nil {
		return err
	}
	s.log.Info("news created", logx.Int64("id", n.ID), logx.String("title", n.Title), logx.Bool("preview", n.PreviewImage != nil))
	return nil
}

// Update saves n. When the main image changed the old preview is dropped and a
// new one derived; otherwise the stored preview is kept.
func (s *Service) Update(ctx context.Context, n *storage.News) error {
	if err := validate(n); err != nil {
		return err
	}
	old, err := s.store.GetNews(ctx, n.ID)
	if err != nil {
		return err
	}
	if n.PublishedAt.IsZero() {
		n.PublishedAt = old.PublishedAt
	}
	if bytes.Equal(old.MainImage, n.MainImage) {
		n.PreviewImage = old.PreviewImage
	} else {
		n.PreviewImage = s.preview(n)
	}
	return s.store.UpdateNews(ctx, n)
}

func (s *Service) preview(n *storage.News) []byte {
	p, err := MakePreview(n.MainImage)
	if err != nil {
		s.log.Warn("preview generation failed", logx.Int64("id", n.ID), logx.Err(err))
		return nil
	}
	return p
}

func (s *Service) Get(ctx context.Context, id int64) (storage.News, error) {
	return s.store.GetNews(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]storage.News, error) {
	return s.store.ListNews(ctx)
}

// PublishedOn returns the articles published on day's calendar date in the
// service location, oldest first.
func (s *Service) PublishedOn(ctx context.Context, day time.Time) ([]storage.News, error) {
	d := day.In(s.loc)
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
	return s.store.NewsPublishedBetween(ctx, from, from.AddDate(0, 0, 1))
}

// SendDigest mails today's titles. With nothing published today no mail is sent.
// Missing recipients and permanent SMTP rejections are not retried.
func (s *Service) SendDigest(ctx context.Context) error {
	today, err := s.PublishedOn(ctx, s.now())
	if err != nil {
		return fmt.Errorf("load today's news: %w", err)
	}
	if len(today) == 0 {
		s.log.Info("no news published today; digest skipped")
		return nil
	}

	recipients, err := s.settings.Recipients(ctx)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return engine.NoRetry(fmt.Errorf("%s is empty: %w", settings.EmailRecipients, mail.ErrNoRecipients))
	}
	subject, err := s.settings.Get(ctx, settings.EmailSubject)
	if err != nil {
		return err
	}
	greeting, err := s.settings.Get(ctx, settings.EmailMessage)
	if err != nil {
		return err
	}

	msg := mail.Message{
		From:    s.from,
		To:      recipients,
		Subject: subject,
		Body:    DigestBody(greeting, today),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		if mail.IsPermanent(err) {
			return engine.NoRetry(err)
		}
		return err
	}
	s.log.Info("news digest sent", logx.Int("articles", len(today)), logx.Int("recipients", len(recipients)))
	return nil
}

// DigestBody is the greeting, a blank line, then one title per line.
func DigestBody(greeting string, items []storage.News) string {
	var b strings.Builder
	b.WriteString(greeting)
	b.WriteString("\n\n")
	for i, n := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(n.Title)
	}
	return b.String()
}
