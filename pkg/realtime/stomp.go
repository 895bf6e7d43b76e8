package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/go-stomp/stomp/v3"
	"github.com/rs/zerolog/log"
	"github.com/travigo/disruptions/pkg/ctdf"
)

// StompClient forwards realtime events published on a STOMP destination to
// the realtime queue.
type StompClient struct {
	Address     string
	Username    string
	Password    string
	Destination string

	Publisher *Publisher
}

func (s *StompClient) Run() error {
	var stompOptions []func(*stomp.Conn) error
	if s.Username != "" {
		stompOptions = append(stompOptions, stomp.ConnOpt.Login(s.Username, s.Password))
	}

	conn, err := stomp.Dial("tcp", s.Address, stompOptions...)
	if err != nil {
		return fmt.Errorf("cannot connect to %s: %w", s.Address, err)
	}
	defer conn.Disconnect()

	sub, err := conn.Subscribe(s.Destination, stomp.AckAuto)
	if err != nil {
		return fmt.Errorf("cannot subscribe to %s: %w", s.Destination, err)
	}

	log.Info().Str("destination", s.Destination).Msg("Subscribed to STOMP destination")

	for msg := range sub.C {
		if msg.Err != nil {
			return msg.Err
		}

		if err := s.forward(msg.Body); err != nil {
			log.Error().Err(err).Str("destination", s.Destination).Msg("Dropping STOMP message")
		}
	}

	return nil
}

func (s *StompClient) forward(body []byte) error {
	var event ctdf.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}

	switch event.Type {
	case ctdf.EventTypeDisruptionUpserted, ctdf.EventTypeDisruptionDeleted, ctdf.EventTypeTripUpdated:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEventType, event.Type)
	}

	_, err := s.Publisher.Publish(event.Type, event.Body)
	return err
}
