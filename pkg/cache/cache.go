// Package cache holds the most recent denoised image.
package cache

import (
	"astrodenoise/internal/models"
	"astrodenoise/pkg/events"
)

// InvalidatingEvents are the events that clear a ResultCache subscribed to a bus
var InvalidatingEvents = []events.EventType{
	events.EventLoadImage,
	events.EventCalculateRequest,
	events.EventApplyCrop,
	events.EventModelVersionChanged,
}

// ResultCache is a single-slot store for the last denoised output. It does
// no locking: concurrent denoise runs against one cache must be serialized
// by the caller.
type ResultCache struct {
	image *models.Image
}

// New creates an empty cache
func New() *ResultCache {
	return &ResultCache{}
}

// Get returns the cached image, if any
func (c *ResultCache) Get() (*models.Image, bool) {
	return c.image, c.image != nil
}

// Set replaces the cached image
func (c *ResultCache) Set(img *models.Image) {
	c.image = img
}

// Invalidate empties the cache
func (c *ResultCache) Invalidate() {
	c.image = nil
}

// Subscribe clears the cache whenever one of InvalidatingEvents is emitted
// on bus. The returned function removes all subscriptions.
func (c *ResultCache) Subscribe(bus *events.Bus) (unsubscribe func()) {
	removers := make([]func(), 0, len(InvalidatingEvents))
	for _, e := range InvalidatingEvents {
		removers = append(removers, bus.On(e, func(interface{}) { c.Invalidate() }))
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}
