package newsletter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/dmitrymomot/briefly/internal/coinmarketcap"
	"github.com/dmitrymomot/briefly/internal/mailer"
	"github.com/dmitrymomot/briefly/internal/weatherapi"
)

var (
	// ErrRecipientRequired is returned when the owning account has no email
	// address. Checked before any upstream fetch so a send to nowhere costs
	// zero API calls.
	ErrRecipientRequired = errors.New("newsletter: recipient email is required")

	ErrFetchWeather = errors.New("newsletter: failed to fetch weather data")
	ErrFetchCrypto  = errors.New("newsletter: failed to fetch crypto data")
	ErrRender       = errors.New("newsletter: failed to render newsletter")
	ErrDispatch     = errors.New("newsletter: failed to dispatch newsletter")
)

// WeatherFetcher provides a current-conditions snapshot for a city.
type WeatherFetcher interface {
	Current(ctx context.Context, city string) (*weatherapi.Summary, error)
}

// CryptoFetcher provides latest EUR quotes for a batch of symbols.
type CryptoFetcher interface {
	LatestQuotes(ctx context.Context, symbols []string) ([]coinmarketcap.Summary, error)
}

// Dispatcher renders markdown into the email layout and sends the result.
type Dispatcher interface {
	RenderMarkdown(markdown string) (*mailer.RenderResult, error)
	SendRaw(ctx context.Context, email *mailer.Email) error
}

// Service runs the send pipeline: extract component params, fetch live data,
// assemble the markdown document, render it and dispatch the email.
type Service struct {
	weather WeatherFetcher
	crypto  CryptoFetcher
	mail    Dispatcher
	baseURL string
	log     *slog.Logger
}

// NewService creates the send pipeline service. baseURL is the public
// origin used to build unsubscribe links.
func NewService(weather WeatherFetcher, crypto CryptoFetcher, mail Dispatcher, baseURL string, log *slog.Logger) *Service {
	return &Service{
		weather: weather,
		crypto:  crypto,
		mail:    mail,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log,
	}
}

// Send runs the full pipeline for one newsletter and dispatches the email to
// recipient. Any stage failing fails the whole send; nothing partial goes out.
func (s *Service) Send(ctx context.Context, n *Newsletter, recipient string) error {
	doc, err := s.build(ctx, n, recipient)
	if err != nil {
		return err
	}

	result, err := s.mail.RenderMarkdown(doc.Markdown)
	if err != nil {
		return errors.Join(ErrRender, err)
	}

	email := &mailer.Email{
		To:      []string{recipient},
		Subject: doc.Subject,
		HTML:    result.HTML,
		Text:    result.Text,
	}
	if err := s.mail.SendRaw(ctx, email); err != nil {
		return errors.Join(ErrDispatch, err)
	}

	s.log.InfoContext(ctx, "newsletter sent",
		slog.String("newsletter_id", n.ID),
		slog.Int("components", len(n.Components)))
	return nil
}

// Preview runs the pipeline up to rendering and returns the HTML without
// dispatching anything. Live data is fetched the same way a real send would.
func (s *Service) Preview(ctx context.Context, n *Newsletter, recipient string) (string, error) {
	doc, err := s.build(ctx, n, recipient)
	if err != nil {
		return "", err
	}

	result, err := s.mail.RenderMarkdown(doc.Markdown)
	if err != nil {
		return "", errors.Join(ErrRender, err)
	}
	return result.HTML, nil
}

// build fetches live data for the newsletter's components and assembles the
// markdown document. The recipient check runs first, before any fetch.
func (s *Service) build(ctx context.Context, n *Newsletter, recipient string) (Document, error) {
	if strings.TrimSpace(recipient) == "" {
		return Document{}, ErrRecipientRequired
	}

	params, err := ExtractParams(n.Components)
	if err != nil {
		return Document{}, err
	}

	// The first weather component wins; additional ones contribute ordering
	// but not extra cities.
	var city string
	var symbols []string
	var quotes []QuoteParams
	for _, p := range params {
		switch p.Kind {
		case KindWeather:
			if city == "" {
				city = p.Weather.City
			}
		case KindCrypto:
			symbols = append(symbols, p.Crypto.Symbols...)
		case KindQuote:
			quotes = append(quotes, *p.Quote)
		}
	}

	var weather *weatherapi.Summary
	if city != "" {
		weather, err = s.weather.Current(ctx, city)
		if err != nil {
			return Document{}, errors.Join(ErrFetchWeather, err)
		}
	}

	var crypto []coinmarketcap.Summary
	if len(symbols) > 0 {
		crypto, err = s.crypto.LatestQuotes(ctx, symbols)
		if err != nil {
			return Document{}, errors.Join(ErrFetchCrypto, err)
		}
	}

	doc := Assemble(AssembleInput{
		Title:          n.Title,
		Interval:       n.Interval,
		TimeOfDay:      n.TimeOfDay,
		Weather:        weather,
		Crypto:         crypto,
		Quotes:         quotes,
		Order:          params,
		UnsubscribeURL: s.UnsubscribeURL(n.Token),
	})
	return doc, nil
}

// UnsubscribeURL builds the public unsubscribe link for a newsletter token.
func (s *Service) UnsubscribeURL(token string) string {
	return fmt.Sprintf("%s/unsubscribe?token=%s", s.baseURL, url.QueryEscape(token))
}
