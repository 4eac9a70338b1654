package location

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/pkg/mqtt"
)

// ErrSourceStopped is reported to pending requests when the MQTT source stops.
var ErrSourceStopped = errors.New("mqtt location source stopped")

// mqttFix is an OwnTracks style location payload.
type mqttFix struct {
	Type      string   `json:"_type"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
	Accuracy  float64  `json:"acc"`
	Timestamp int64    `json:"tst"`
}

type mqttWaiter struct {
	onSuccess SuccessFunc
	onError   ErrorFunc
	timer     *time.Timer
}

func (w *mqttWaiter) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

type mqttWatcher struct {
	onSuccess SuccessFunc
	onError   ErrorFunc
}

// MQTTSource receives fixes published to a broker topic and fans them out to
// every watch. One-shot requests wait for the next fix unless a cached one is
// young enough.
type MQTTSource struct {
	client mqtt.MQTTClient
	topic  string
	qos    byte
	logger zerolog.Logger

	mu         sync.Mutex
	subscribed bool
	nextID     uint64
	watchers   map[WatchID]mqttWatcher
	waiters    map[uint64]*mqttWaiter
	last       Location
	lastAt     time.Time
	haveLast   bool

	now func() time.Time
}

// NewMQTTSource creates a source for the given topic.
func NewMQTTSource(client mqtt.MQTTClient, topic string, qos int, logger zerolog.Logger) *MQTTSource {
	return &MQTTSource{
		client:   client,
		topic:    topic,
		qos:      byte(qos),
		logger:   logger,
		watchers: make(map[WatchID]mqttWatcher),
		waiters:  make(map[uint64]*mqttWaiter),
		now:      time.Now,
	}
}

// Start subscribes to the fix topic.
func (s *MQTTSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribed {
		return errors.New("mqtt location source is already running")
	}

	token := s.client.Subscribe(s.topic, s.qos, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, token.Error())
	}
	s.subscribed = true

	s.logger.Info().Str("topic", s.topic).Int("qos", int(s.qos)).Msg("MQTT location source started")
	return nil
}

// Stop unsubscribes and fails every pending one-shot request.
func (s *MQTTSource) Stop() error {
	s.mu.Lock()
	if !s.subscribed {
		s.mu.Unlock()
		return errors.New("mqtt location source is not running")
	}
	s.subscribed = false
	waiters := s.waiters
	s.waiters = make(map[uint64]*mqttWaiter)
	s.mu.Unlock()

	for _, w := range waiters {
		w.stop()
		w.onError(&PositionError{Code: PositionUnavailable, Message: ErrSourceStopped.Error()})
	}

	token := s.client.Unsubscribe(s.topic)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", s.topic, token.Error())
	}

	s.logger.Info().Str("topic", s.topic).Msg("MQTT location source stopped")
	return nil
}

// Available reports whether the topic subscription is active.
func (s *MQTTSource) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

// GetCurrentPosition answers from the cache or waits for the next published fix.
func (s *MQTTSource) GetCurrentPosition(onSuccess SuccessFunc, onError ErrorFunc, opts Options) {
	s.mu.Lock()
	if !s.subscribed {
		s.mu.Unlock()
		go onError(&PositionError{Code: PositionUnavailable, Message: ErrSourceStopped.Error()})
		return
	}
	if s.fresh(opts.MaximumAge) {
		loc := s.last
		s.mu.Unlock()
		go onSuccess(loc)
		return
	}

	id := s.nextID
	s.nextID++
	w := &mqttWaiter{onSuccess: onSuccess, onError: onError}
	if opts.Timeout > 0 {
		w.timer = time.AfterFunc(opts.Timeout, func() { s.expire(id) })
	}
	s.waiters[id] = w
	s.mu.Unlock()
}

// WatchPosition registers a watch. A cached fix within MaximumAge is delivered immediately.
func (s *MQTTSource) WatchPosition(onSuccess SuccessFunc, onError ErrorFunc, opts Options) WatchID {
	s.mu.Lock()
	id := WatchID(s.nextID)
	s.nextID++
	s.watchers[id] = mqttWatcher{onSuccess: onSuccess, onError: onError}
	fresh, loc := s.fresh(opts.MaximumAge), s.last
	s.mu.Unlock()

	if fresh {
		go onSuccess(loc)
	}
	return id
}

// ClearWatch removes a watch.
func (s *MQTTSource) ClearWatch(id WatchID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, id)
}

func (s *MQTTSource) handleMessage(_ paho.Client, msg paho.Message) {
	var fix mqttFix
	if err := json.Unmarshal(msg.Payload(), &fix); err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Discarding malformed location payload")
		return
	}
	if fix.Type != "" && fix.Type != "location" {
		return
	}
	if fix.Latitude == nil || fix.Longitude == nil {
		s.logger.Warn().Str("topic", msg.Topic()).Msg("Discarding location payload without coordinates")
		return
	}

	loc := Location{
		Latitude:  *fix.Latitude,
		Longitude: *fix.Longitude,
		Accuracy:  fix.Accuracy,
		Timestamp: s.now(),
	}
	if fix.Timestamp > 0 {
		loc.Timestamp = time.Unix(fix.Timestamp, 0)
	}
	s.Publish(loc)
}

// Publish stores a fix and hands it to every waiter and watch.
func (s *MQTTSource) Publish(loc Location) {
	s.mu.Lock()
	s.last = loc
	s.lastAt = s.now()
	s.haveLast = true

	waiters := s.waiters
	s.waiters = make(map[uint64]*mqttWaiter)
	watchers := make([]mqttWatcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	for _, w := range waiters {
		w.stop()
		w.onSuccess(loc)
	}
	for _, w := range watchers {
		w.onSuccess(loc)
	}
}

func (s *MQTTSource) expire(id uint64) {
	s.mu.Lock()
	w, ok := s.waiters[id]
	delete(s.waiters, id)
	s.mu.Unlock()

	if ok {
		w.onError(&PositionError{Code: Timeout, Message: "no fix published before timeout"})
	}
}

// fresh must be called with s.mu held.
func (s *MQTTSource) fresh(maxAge time.Duration) bool {
	return s.haveLast && maxAge > 0 && s.now().Sub(s.lastAt) <= maxAge
}
