package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-softball/internal/api/respond"
	"github.com/albapepper/scoracle-softball/internal/cache"
	"github.com/albapepper/scoracle-softball/internal/model"
)

// GetSeasons lists every season.
func (h *Handler) GetSeasons(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, cache.PrefixSeasons+":list", cache.TTLSeasons, func(ctx context.Context) (interface{}, error) {
		seasons, err := h.store.ListSeasons(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]seasonView, 0, len(seasons))
		for _, s := range seasons {
			out = append(out, seasonView{Season: s, Label: s.Label()})
		}
		return map[string]interface{}{"seasons": out}, nil
	})
}

type seasonView struct {
	model.Season
	Label string `json:"label"`
}

// GetSeasonGames lists a season's games in import order.
func (h *Handler) GetSeasonGames(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "seasonID")
	if !ok {
		return
	}
	key := fmt.Sprintf("%s:%d:games", cache.PrefixSeasons, id)
	h.serveCached(w, r, key, cache.TTLGames, func(ctx context.Context) (interface{}, error) {
		season, err := h.store.GetSeason(ctx, id)
		if err != nil {
			return nil, err
		}
		games, err := h.store.GamesInSeason(ctx, id)
		if err != nil {
			return nil, err
		}
		if games == nil {
			games = []model.Game{}
		}
		return map[string]interface{}{
			"season": seasonView{Season: season, Label: season.Label()},
			"games":  games,
		}, nil
	})
}

// GetGameStats returns a game with its batting and pitching lines and the
// derived metrics.
func (h *Handler) GetGameStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	key := fmt.Sprintf("%s:%d:stats", cache.PrefixGames, id)
	h.serveCached(w, r, key, cache.TTLGameStats, func(ctx context.Context) (interface{}, error) {
		game, err := h.store.GetGame(ctx, id)
		if err != nil {
			return nil, err
		}
		batting, err := h.store.GameBattingStats(ctx, id)
		if err != nil {
			return nil, err
		}
		pitching, err := h.store.GamePitchingStats(ctx, id)
		if err != nil {
			return nil, err
		}
		if batting == nil {
			batting = []model.BattingStats{}
		}
		if pitching == nil {
			pitching = []model.PitchingStats{}
		}
		return map[string]interface{}{
			"game":     game,
			"batting":  batting,
			"pitching": pitching,
		}, nil
	})
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidID, fmt.Sprintf("%s must be a positive integer, got %q", param, raw))
		return 0, false
	}
	return id, true
}
