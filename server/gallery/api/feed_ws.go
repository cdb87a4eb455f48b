package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	commonauth "eventgallery/server/common/auth"
	commonlog "eventgallery/server/common/log"
	"eventgallery/server/common/metrics"
	"eventgallery/server/common/middleware"
	"eventgallery/server/common/transport/httpresp"
	"eventgallery/server/gallery/domain"
	"eventgallery/server/gallery/feed"
	"eventgallery/server/gallery/service"
)

const (
	wsTypeNearBottom = "near_bottom"
	wsTypeReset      = "reset"
	wsTypePing       = "ping"

	wsTypeReady   = "ready"
	wsTypePage    = "page"
	wsTypeError   = "error"
	wsTypePong    = "pong"
	wsTypeUpdated = "updated"
	wsTypeRemoved = "removed"

	wsReadTimeout  = 90 * time.Second
	wsWriteTimeout = 5 * time.Second
)

var feedUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type wsClientMessage struct {
	Type string `json:"type"`
}

type wsPageMessage struct {
	Type    string             `json:"type"`
	Items   []domain.MediaItem `json:"items"`
	Skipped []domain.Skip      `json:"skipped"`
	HasMore bool               `json:"has_more"`
	Loading bool               `json:"loading"`
	Total   int                `json:"total"`
}

type wsStateMessage struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
	Admin   bool   `json:"admin"`
	HasMore bool   `json:"has_more"`
}

type wsItemMessage struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Visibility domain.Visibility `json:"visibility,omitempty"`
}

type wsErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// feedSession drives one feed over one websocket connection. Every
// near_bottom signal requests a page; signals arriving while a page is in
// flight are refused by the feed.
type feedSession struct {
	conn    *websocket.Conn
	feed    *feed.Feed
	hub     *service.FeedHub
	eventID string
	admin   bool

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func (h *Handler) handleFeedWS(c *gin.Context) {
	eventID := strings.TrimSpace(c.Param("eventId"))
	admin := false
	if token, ok := middleware.BearerToken(c); ok {
		_, tokenEventID, role, err := h.auth.ParseAuthContext(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(httpresp.ErrInvalidToken))
			return
		}
		if role != commonauth.RoleAdmin || tokenEventID != eventID {
			c.JSON(http.StatusForbidden, NewErrorResponse(httpresp.ErrEventMismatch))
			return
		}
		admin = true
	}

	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		commonlog.Warnf("event=feed_ws action=upgrade status=failed event_id=%s err=%v", eventID, err)
		return
	}
	cfg := h.feedCfg
	cfg.Admin = admin
	s := &feedSession{conn: conn, feed: feed.New(h.media, h.prober, cfg), hub: h.hub, eventID: eventID, admin: admin}

	metrics.FeedSessions.Inc()
	defer metrics.FeedSessions.Dec()
	commonlog.Infof("event=feed_ws action=connect status=ok event_id=%s admin=%t", eventID, admin)
	s.run(c.Request.Context())
	commonlog.Infof("event=feed_ws action=disconnect status=ok event_id=%s", eventID)
}

func (s *feedSession) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer s.conn.Close()
	defer s.wg.Wait()
	defer s.feed.Close()
	defer cancel()

	if s.hub != nil {
		sub := s.hub.Subscribe(s.eventID)
		defer sub.Close()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.applyNotices(ctx, sub)
		}()
	}

	s.feed.Reset(s.eventID)
	s.writeJSON(wsStateMessage{Type: wsTypeReady, EventID: s.eventID, Admin: s.admin, HasMore: true})

	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			return
		}
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.writeJSON(wsErrorMessage{Type: wsTypeError, Error: httpresp.ErrInvalidRequest})
			continue
		}
		switch msg.Type {
		case wsTypeNearBottom:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.loadNext(ctx)
			}()
		case wsTypeReset:
			s.feed.Reset(s.eventID)
			s.writeJSON(wsStateMessage{Type: wsTypeReset, EventID: s.eventID, Admin: s.admin, HasMore: true})
		case wsTypePing:
			s.writeJSON(wsClientMessage{Type: wsTypePong})
		default:
			s.writeJSON(wsErrorMessage{Type: wsTypeError, Error: httpresp.ErrInvalidRequest})
		}
	}
}

func (s *feedSession) loadNext(ctx context.Context) {
	res, err := s.feed.FetchNextPage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.writeJSON(wsErrorMessage{Type: wsTypeError, Error: httpresp.ErrInternal})
		}
		return
	}
	if res.Outcome != feed.OutcomeLoaded {
		return
	}
	state := s.feed.Snapshot()
	s.writeJSON(wsPageMessage{
		Type:    wsTypePage,
		Items:   res.Appended,
		Skipped: res.Skipped,
		HasMore: res.HasMore,
		Loading: state.Loading,
		Total:   len(state.Items),
	})
}

// applyNotices mirrors moderation changes into the loaded list and tells the
// client about items it already shows.
func (s *feedSession) applyNotices(ctx context.Context, sub *service.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-sub.C:
			if !ok {
				return
			}
			s.applyNotice(n)
		}
	}
}

func (s *feedSession) applyNotice(n service.ModerationNotice) {
	switch n.Type {
	case service.NoticeVisibility:
		if !s.feed.SetVisibility(n.MediaID, n.Visibility) {
			return
		}
		if s.admin {
			s.writeJSON(wsItemMessage{Type: wsTypeUpdated, ID: n.MediaID, Visibility: n.Visibility})
		} else if n.Visibility != domain.VisibilityPublic {
			s.writeJSON(wsItemMessage{Type: wsTypeRemoved, ID: n.MediaID})
		}
	case service.NoticeDeleted:
		if s.feed.Remove(n.MediaID) {
			s.writeJSON(wsItemMessage{Type: wsTypeRemoved, ID: n.MediaID})
		}
	}
}

func (s *feedSession) writeJSON(payload any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = s.conn.WriteJSON(payload)
}
