package gridiron

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dustin/go-humanize"
	"github.com/richard-senior/gridiron/internal/logger"
	"github.com/richard-senior/gridiron/pkg/transport"
	"golang.org/x/time/rate"
)

// Fetcher retrieves the body at url
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// Game is the raw play-by-play document for one game
type Game struct {
	ID        string
	Raw       []byte
	FromCache bool
}

// Plays parses the plays out of the game document
func (g *Game) Plays() ([]*Play, error) {
	return ParsePlays(g.Raw)
}

// SportradarDatasource fetches NFL play-by-play documents from the
// SportRadar API, one game at a time, at no more than one request per
// Config.RequestInterval
type SportradarDatasource struct {
	config  *GridironConfig
	limiter *rate.Limiter
	fetch   Fetcher
}

var gameIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// NewSportradarDatasource creates a datasource using config and the shared
// HTTP client
func NewSportradarDatasource(config *GridironConfig) *SportradarDatasource {
	transport.SetTimeout(config.HTTPTimeout)
	return NewSportradarDatasourceWithFetcher(config, transport.GetJSON)
}

// NewSportradarDatasourceWithFetcher creates a datasource with a custom fetcher
func NewSportradarDatasourceWithFetcher(config *GridironConfig, fetch Fetcher) *SportradarDatasource {
	return &SportradarDatasource{
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.RequestInterval), 1),
		fetch:   fetch,
	}
}

// GameURL returns the play-by-play endpoint for gameID
func (d *SportradarDatasource) GameURL(gameID string) string {
	return fmt.Sprintf("%s/nfl/official/%s/%s/%s/games/%s/pbp.json?api_key=%s",
		d.config.BaseURL, d.config.AccessLevel, d.config.Version, d.config.Language,
		url.PathEscape(gameID), url.QueryEscape(d.config.APIKey))
}

func (d *SportradarDatasource) cacheFile(gameID string) string {
	return filepath.Join(d.config.CachePath, fmt.Sprintf("sportradar-%s-pbp.json", gameID))
}

// FetchGames fetches the play-by-play document of each game in order.
// Cached documents are read from disk without touching the API; a cache file
// that is not a play-by-play document is removed and fetched again. A game
// whose request fails, or whose body is not a play-by-play document, is
// logged and skipped and never cached. If ctx ends, the games fetched so far
// are returned together with the context's error.
func (d *SportradarDatasource) FetchGames(ctx context.Context, gameIDs []string) ([]*Game, error) {
	if err := os.MkdirAll(d.config.CachePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	games := make([]*Game, 0, len(gameIDs))
	for _, id := range gameIDs {
		if !gameIDPattern.MatchString(id) {
			logger.Error("Skipping malformed game id", id)
			continue
		}

		cacheFilename := d.cacheFile(id)
		if data, err := os.ReadFile(cacheFilename); err == nil {
			cerr := checkDocument(data)
			if cerr == nil {
				logger.Info("Loaded game from cache:", cacheFilename)
				games = append(games, &Game{ID: id, Raw: data, FromCache: true})
				continue
			}
			logger.Warn("Discarding invalid cache file", cacheFilename, cerr)
			if rerr := os.Remove(cacheFilename); rerr != nil {
				logger.Warn("Failed to remove cache file", cacheFilename, rerr)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Ignoring unreadable cache file", cacheFilename, err)
		}

		if d.config.APIKey == "" {
			return games, fmt.Errorf("no SportRadar API key configured (set %s)", APIKeyEnv)
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return games, err
		}

		data, err := d.fetch(ctx, d.GameURL(id))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return games, ctxErr
			}
			var se *transport.StatusError
			if errors.As(err, &se) {
				logger.Error(fmt.Sprintf("Error fetching data for game %s:", id), se.Status)
			} else {
				logger.Error(fmt.Sprintf("Error fetching data for game %s:", id), err)
			}
			continue
		}
		logger.Info(fmt.Sprintf("Fetched game %s (%s)", id, humanize.Bytes(uint64(len(data)))))
		if err := checkDocument(data); err != nil {
			logger.Error(fmt.Sprintf("Error fetching data for game %s:", id), err)
			continue
		}

		if err := os.WriteFile(cacheFilename, data, 0644); err != nil {
			logger.Warn("Failed to write cache file", cacheFilename, err)
		}
		games = append(games, &Game{ID: id, Raw: data})
	}
	return games, nil
}

// FetchPlays fetches games and parses their plays, preserving game order.
// A game whose document cannot be parsed is logged and skipped.
func (d *SportradarDatasource) FetchPlays(ctx context.Context, gameIDs []string) ([]*Play, error) {
	games, err := d.FetchGames(ctx, gameIDs)
	var plays []*Play
	for _, g := range games {
		p, perr := g.Plays()
		if perr != nil {
			logger.Error(fmt.Sprintf("Error parsing game %s:", g.ID), perr)
			continue
		}
		plays = append(plays, p...)
	}
	return plays, err
}
