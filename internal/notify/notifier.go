package notify

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/park285/omok-server/internal/msgcat"
	"github.com/park285/omok-server/internal/obslog"
	"github.com/park285/omok-server/internal/render"
	"github.com/park285/omok-server/pkg/omokdto"
	"go.uber.org/zap"
)

// ResultPayload is the webhook body for a finished game.
type ResultPayload struct {
	Type        string `json:"type"`
	GameID      string `json:"gameId"`
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName"`
	BlackPlayer string `json:"blackPlayer"`
	WhitePlayer string `json:"whitePlayer"`
	Winner      string `json:"winner,omitempty"`
	Color       string `json:"color,omitempty"`
	Draw        bool   `json:"draw"`
	Moves       int    `json:"moves"`
	DurationMS  int64  `json:"durationMs"`
	FinishedAt  int64  `json:"finishedAt"`
	Summary     string `json:"summary"`
	ImagePNG    string `json:"imagePng,omitempty"` // base64
}

// Notifier posts finished games, with a rendered final board, to a webhook.
type Notifier struct {
	client   *Client
	renderer *render.Renderer
	cat      *msgcat.Catalog
}

func NewNotifier(client *Client, renderer *render.Renderer, cat *msgcat.Catalog) *Notifier {
	return &Notifier{client: client, renderer: renderer, cat: cat}
}

func (n *Notifier) RecordResult(ctx context.Context, g omokdto.GameResult) error {
	p := ResultPayload{
		Type:        "omok.result",
		GameID:      g.ID,
		RoomID:      g.RoomID,
		RoomName:    g.RoomName,
		BlackPlayer: g.BlackName,
		WhitePlayer: g.WhiteName,
		Winner:      g.WinnerID,
		Color:       g.WinnerColor,
		Draw:        g.Draw,
		Moves:       g.Moves,
		DurationMS:  g.Duration().Milliseconds(),
		FinishedAt:  g.FinishedAt.UnixMilli(),
		Summary:     n.summary(g),
	}
	if n.renderer != nil && len(g.Board) > 0 {
		png, err := n.renderer.RenderPNG(ctx, g.Board, render.Options{LastMove: &render.Point{Row: g.LastRow, Col: g.LastCol}})
		if err != nil {
			// send without the image
			obslog.L().Warn("notify_render_failed", zap.String("game_id", g.ID), zap.Error(err))
		} else {
			p.ImagePNG = base64.StdEncoding.EncodeToString(png)
		}
	}
	if err := n.client.Post(ctx, g.ID, p); err != nil {
		return fmt.Errorf("post result %s: %w", g.ID, err)
	}
	obslog.L().Info("notify_sent", zap.String("game_id", g.ID), zap.String("room_id", g.RoomID))
	return nil
}

func (n *Notifier) summary(g omokdto.GameResult) string {
	data := map[string]any{"RoomID": g.RoomID, "Moves": g.Moves, "Winner": g.WinnerID, "Color": g.WinnerColor}
	if g.Draw {
		return n.cat.Text("notify.draw", data, fmt.Sprintf("Room %s: draw after %d moves.", g.RoomID, g.Moves))
	}
	winner := g.BlackName
	if g.WinnerColor == "white" {
		winner = g.WhiteName
	}
	if winner != "" {
		data["Winner"] = winner
	}
	return n.cat.Text("notify.win", data, fmt.Sprintf("Room %s: %s won.", g.RoomID, winner))
}
