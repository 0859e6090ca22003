package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/gorilla/websocket"
)

// realtime control channel to the platform. the platform pushes
// lifecycle notices over this channel (suspend ahead of host-side
// backgrounding, visibility changes) which feed the lifecycle monitor.

type RealtimeChannelSettings struct {
	WsHandshakeTimeout time.Duration
	AuthTimeout        time.Duration
	ReconnectTimeout   time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
}

func DefaultRealtimeChannelSettings() *RealtimeChannelSettings {
	return &RealtimeChannelSettings{
		WsHandshakeTimeout: 2 * time.Second,
		AuthTimeout:        2 * time.Second,
		ReconnectTimeout:   5 * time.Second,
		PingTimeout:        15 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadTimeout:        60 * time.Second,
	}
}

type realtimeAuth struct {
	SessionJwt string `json:"session_jwt"`
}

type realtimeEvent struct {
	Type    string `json:"type"`
	Visible bool   `json:"visible,omitempty"`
}

const realtimeEventSuspend = "suspend"
const realtimeEventResume = "resume"
const realtimeEventVisibility = "visibility"

type RealtimeChannel struct {
	ctx    context.Context
	cancel context.CancelFunc

	realtimeUrl string
	session     *SessionController
	lifecycle   *LifecycleMonitor

	settings *RealtimeChannelSettings
}

func NewRealtimeChannelWithDefaults(
	ctx context.Context,
	realtimeUrl string,
	session *SessionController,
	lifecycle *LifecycleMonitor,
) *RealtimeChannel {
	return NewRealtimeChannel(ctx, realtimeUrl, session, lifecycle, DefaultRealtimeChannelSettings())
}

func NewRealtimeChannel(
	ctx context.Context,
	realtimeUrl string,
	session *SessionController,
	lifecycle *LifecycleMonitor,
	settings *RealtimeChannelSettings,
) *RealtimeChannel {
	cancelCtx, cancel := context.WithCancel(ctx)

	realtimeChannel := &RealtimeChannel{
		ctx:         cancelCtx,
		cancel:      cancel,
		realtimeUrl: realtimeUrl,
		session:     session,
		lifecycle:   lifecycle,
		settings:    settings,
	}
	go HandleError(realtimeChannel.run)
	return realtimeChannel
}

func (self *RealtimeChannel) run() {
	// connect, auth, then read lifecycle events until the connection
	// drops. reconnect forever.
	defer self.cancel()

	if err := self.session.WaitForReady(self.ctx); err != nil {
		return
	}

	for {
		connect := func() (*websocket.Conn, error) {
			dialer := &websocket.Dialer{
				HandshakeTimeout: self.settings.WsHandshakeTimeout,
			}
			ws, _, err := dialer.DialContext(self.ctx, self.realtimeUrl, nil)
			if err != nil {
				return nil, err
			}

			success := false
			defer func() {
				if !success {
					ws.Close()
				}
			}()

			authBytes, err := json.Marshal(&realtimeAuth{
				SessionJwt: self.session.SessionJwt(),
			})
			if err != nil {
				return nil, err
			}

			ws.SetWriteDeadline(time.Now().Add(self.settings.AuthTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, authBytes); err != nil {
				return nil, err
			}
			ws.SetReadDeadline(time.Now().Add(self.settings.AuthTimeout))
			if messageType, _, err := ws.ReadMessage(); err != nil {
				return nil, err
			} else if messageType != websocket.TextMessage {
				return nil, fmt.Errorf("auth response error")
			}

			success = true
			return ws, nil
		}

		ws, err := connect()
		if err != nil {
			glog.Infof("[realtime]connect error = %s\n", err)
			select {
			case <-self.ctx.Done():
				return
			case <-time.After(self.settings.ReconnectTimeout):
				continue
			}
		}
		glog.Infof("[realtime]connected\n")

		c := func() {
			defer ws.Close()

			handleCtx, handleCancel := context.WithCancel(self.ctx)
			defer handleCancel()

			go func() {
				defer handleCancel()

				for {
					select {
					case <-handleCtx.Done():
						return
					case <-time.After(self.settings.PingTimeout):
						ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
						if err := ws.WriteMessage(websocket.PingMessage, make([]byte, 0)); err != nil {
							// a deadline timeout on websocket cannot be recovered
							return
						}
					}
				}
			}()

			for {
				select {
				case <-handleCtx.Done():
					return
				default:
				}

				ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
				messageType, message, err := ws.ReadMessage()
				if err != nil {
					glog.Infof("[realtime]read error = %s\n", err)
					return
				}
				if messageType != websocket.TextMessage {
					continue
				}

				event := &realtimeEvent{}
				if err := json.Unmarshal(message, event); err != nil {
					glog.V(1).Infof("[realtime]bad event = %s\n", err)
					continue
				}
				self.handleEvent(event)
			}
		}
		c()

		select {
		case <-self.ctx.Done():
			return
		case <-time.After(self.settings.ReconnectTimeout):
		}
	}
}

func (self *RealtimeChannel) handleEvent(event *realtimeEvent) {
	switch event.Type {
	case realtimeEventSuspend:
		glog.Infof("[realtime]suspend notice\n")
		self.lifecycle.NotifyTerminationRisk()
	case realtimeEventVisibility:
		if !event.Visible {
			glog.V(1).Infof("[realtime]hidden\n")
			self.lifecycle.NotifyTerminationRisk()
		}
	case realtimeEventResume:
		glog.V(1).Infof("[realtime]resume\n")
	default:
		glog.V(2).Infof("[realtime]ignored event type = %s\n", event.Type)
	}
}

func (self *RealtimeChannel) Close() {
	self.cancel()
}
