package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"github.com/mathrgo/cpf/cpf"
)

// Time and size constants mirror niceyeti-tabular/tabular/server/server.go's
// websocket pump exactly: the same write deadline, pong wait and derived
// ping period, and maximum inbound message size.
const (
	writeWait      = 1 * time.Second
	maxMessageSize = 8192
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ExternalHint mirrors the external force-torque hint input stream of
// spec.md 6: an advisory list of links currently expected to carry
// contact, consumed only by the full-sweep likelihood mode.
type ExternalHint struct {
	BodyNames []string `json:"body_names"`
}

// GroundTruth is the external contact location pass-through stream of
// spec.md 6: ground-truth logging data republished alongside the
// estimate, unmodified by the filter.
type GroundTruth struct {
	Utime    uint64    `json:"utime"`
	Position [3]float64 `json:"position"`
}

// Server is the residual-in / estimate-out boundary: residual messages
// arriving on any number of "/residual" websocket connections are
// fanned into a single ordered queue (spec.md 5's "queued at the
// transport level"); estimates, ground-truth pass-through and
// visualization payloads are broadcast to every subscriber of
// "/estimate", "/groundtruth" and "/vis" respectively.
type Server struct {
	Addr string

	running int32 // gate for spec.md 5's start/stop control pair

	mu sync.Mutex

	// residualQueue is the single ordered queue every "/residual"
	// connection's read pump feeds into directly (spec.md 5's
	// transport-level queueing); residualOut is the same channel
	// wrapped with channerics.OrDone so a Server.Close unblocks the
	// driver's range loop without a separate sentinel value.
	residualQueue chan cpf.ResidualMessage
	residualOut   <-chan cpf.ResidualMessage

	estimateSubs    []chan cpf.Estimate
	groundTruthSubs []chan GroundTruth
	visSubs         []chan cpf.VisPayload
	hintSubs        []chan ExternalHint

	done chan struct{}
}

// NewServer builds a Server bound to addr, not yet listening.
func NewServer(addr string) *Server {
	s := &Server{
		Addr:          addr,
		done:          make(chan struct{}),
		residualQueue: make(chan cpf.ResidualMessage, 256),
	}
	s.residualOut = channerics.OrDone(s.done, s.residualQueue)
	return s
}

// Start opens the gate so incoming residuals are queued and will
// trigger a step; Stop closes it. The gate is applied where residuals
// arrive: while it is closed, serveResidual discards incoming residuals
// instead of queueing them, and residuals already queued are still
// delivered by Residuals().
func (s *Server) Start() { atomic.StoreInt32(&s.running, 1) }
func (s *Server) Stop()  { atomic.StoreInt32(&s.running, 0) }

// Running reports whether the start/stop gate is currently open.
func (s *Server) Running() bool { return atomic.LoadInt32(&s.running) == 1 }

// Residuals returns the single ordered channel of queued residual
// messages the filter driver should read from, one per step, in
// arrival order across every connected publisher.
func (s *Server) Residuals() <-chan cpf.ResidualMessage { return s.residualOut }

// PublishEstimate broadcasts an estimate to every connected "/estimate" subscriber.
func (s *Server) PublishEstimate(e cpf.Estimate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.estimateSubs {
		select {
		case ch <- e:
		default: // slow consumer: drop rather than block the driver (spec.md 5 has no suspension points)
		}
	}
}

// PublishGroundTruth republishes a ground-truth contact location
// alongside the estimate stream, pass-through and unmodified.
func (s *Server) PublishGroundTruth(g GroundTruth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.groundTruthSubs {
		select {
		case ch <- g:
		default:
		}
	}
}

// PublishVis broadcasts a visualization payload to every connected
// "/vis" subscriber (spec.md 6).
func (s *Server) PublishVis(v cpf.VisPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.visSubs {
		select {
		case ch <- v:
		default:
		}
	}
}

// ListenAndServe registers the websocket endpoints and blocks serving
// HTTP, the way niceyeti-tabular/tabular/server/server.go's Serve does.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/residual", s.serveResidual)
	mux.HandleFunc("/hint", s.serveHint)
	mux.HandleFunc("/estimate", s.serveEstimate)
	mux.HandleFunc("/groundtruth", s.serveGroundTruth)
	mux.HandleFunc("/vis", s.serveVis)
	if err := http.ListenAndServe(s.Addr, mux); err != nil {
		return fmt.Errorf("transport: serve: %w", err)
	}
	return nil
}

// Close tears down the server's background fan-in state.
func (s *Server) Close() { close(s.done) }

// serveResidual upgrades the connection and reads residual messages
// off it, sending each one (while the start/stop gate is open) straight
// into the shared residualQueue, so the driver sees one ordered queue
// across every publisher.
func (s *Server) serveResidual(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: residual upgrade: %v", err)
		return
	}
	ws.SetReadLimit(maxMessageSize)
	defer ws.Close()

	for {
		var msg cpf.ResidualMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("transport: residual read: %v", err)
			}
			return
		}
		if s.Running() {
			select {
			case s.residualQueue <- msg:
			case <-s.done:
				return
			}
		}
	}
}

// serveHint upgrades the connection and republishes the advisory
// force-torque hint stream to every driver listener of Hints().
func (s *Server) serveHint(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: hint upgrade: %v", err)
		return
	}
	defer ws.Close()
	for {
		var hint ExternalHint
		if err := ws.ReadJSON(&hint); err != nil {
			return
		}
		s.PublishHint(hint)
	}
}

// PublishHint broadcasts an external force-torque hint to every
// connected Hints() subscriber, dropping rather than blocking on a
// slow one (spec.md 5 has no suspension points within a step).
func (s *Server) PublishHint(h ExternalHint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.hintSubs {
		select {
		case ch <- h:
		default:
		}
	}
}

// Hints registers a new subscriber channel for the force-torque hint stream.
func (s *Server) Hints() <-chan ExternalHint {
	ch := make(chan ExternalHint, 8)
	s.mu.Lock()
	s.hintSubs = append(s.hintSubs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Server) serveEstimate(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: estimate upgrade: %v", err)
		return
	}
	ch := make(chan cpf.Estimate, 16)
	s.mu.Lock()
	s.estimateSubs = append(s.estimateSubs, ch)
	s.mu.Unlock()
	defer s.removeEstimateSub(ch)
	pumpWrites(ws, ch, func(e cpf.Estimate) ([]byte, error) { return json.Marshal(e) })
}

func (s *Server) serveGroundTruth(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: groundtruth upgrade: %v", err)
		return
	}
	ch := make(chan GroundTruth, 16)
	s.mu.Lock()
	s.groundTruthSubs = append(s.groundTruthSubs, ch)
	s.mu.Unlock()
	defer s.removeGroundTruthSub(ch)
	pumpWrites(ws, ch, func(g GroundTruth) ([]byte, error) { return json.Marshal(g) })
}

func (s *Server) serveVis(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: vis upgrade: %v", err)
		return
	}
	ch := make(chan cpf.VisPayload, 4)
	s.mu.Lock()
	s.visSubs = append(s.visSubs, ch)
	s.mu.Unlock()
	defer s.removeVisSub(ch)
	pumpWrites(ws, ch, func(v cpf.VisPayload) ([]byte, error) { return json.Marshal(v) })
}

// pumpWrites is the shared write-pump loop for every outbound stream:
// it pings on pingPeriod, watches for pongs, and writes each published
// value as a JSON text message, using the same deadline discipline as
// niceyeti-tabular/tabular/server/server.go's publishEleUpdates.
func pumpWrites[T any](ws *websocket.Conn, ch <-chan T, marshal func(T) ([]byte, error)) {
	defer ws.Close()
	done := make(chan struct{})
	pong := make(chan struct{}, 1)
	ws.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := channerics.NewTicker(done, pingPeriod)
	lastPong := time.Now()
	for {
		select {
		case <-done:
			return
		case <-ticker:
			if time.Since(lastPong) > pongWait {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-pong:
			lastPong = time.Now()
		case v, ok := <-ch:
			if !ok {
				return
			}
			payload, err := marshal(v)
			if err != nil {
				log.Printf("transport: marshalling publish: %v", err)
				continue
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func (s *Server) removeEstimateSub(ch chan cpf.Estimate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.estimateSubs {
		if c == ch {
			s.estimateSubs = append(s.estimateSubs[:i], s.estimateSubs[i+1:]...)
			break
		}
	}
}

func (s *Server) removeGroundTruthSub(ch chan GroundTruth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.groundTruthSubs {
		if c == ch {
			s.groundTruthSubs = append(s.groundTruthSubs[:i], s.groundTruthSubs[i+1:]...)
			break
		}
	}
}

func (s *Server) removeVisSub(ch chan cpf.VisPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.visSubs {
		if c == ch {
			s.visSubs = append(s.visSubs[:i], s.visSubs[i+1:]...)
			break
		}
	}
}
