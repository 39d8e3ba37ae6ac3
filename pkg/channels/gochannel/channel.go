// Package gochannel provides the in-process event channel used by a single API instance.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// DefaultBuffer bounds the messages held per subscriber before publishing blocks.
const DefaultBuffer = 1024

// New returns a non-persistent pub/sub. Events published before a subscriber
// exists are dropped, so the notification relay must subscribe first.
func New(logger watermill.LoggerAdapter, buffer int64) *gochannel.GoChannel {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, logger)
}
