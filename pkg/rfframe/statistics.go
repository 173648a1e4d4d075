// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rfframe

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame counts and decode error rates on a radio link
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	ValidFrames      uint64
	ShortFrames      uint64
	TruncatedFrames  uint64
	EchoFrames       uint64
	SensorFrames     uint64
	BinaryFrames     uint64
	UnknownFrames    uint64
	LinkDecodeErrors uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records one received frame and the error it produced, if any.
// A nil frame with a non-nil error is counted as a link level decode error.
func (s *Statistics) Update(f *Frame, err error) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	switch {
	case errors.Is(err, ErrFrameTooShort):
		s.ShortFrames++
		return
	case err != nil && f == nil:
		s.LinkDecodeErrors++
		return
	}

	if _, addrErr := f.Address(); addrErr != nil {
		s.TruncatedFrames++
		return
	}

	s.ValidFrames++
	switch f.Type() {
	case MsgEcho:
		s.EchoFrames++
	case MsgDeviceIDPlusCSVSensorReadings:
		s.SensorFrames++
	case MsgDeviceIDPlusBinaryPayload:
		s.BinaryFrames++
	default:
		s.UnknownFrames++
	}
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		errorCount := s.ShortFrames + s.TruncatedFrames + s.LinkDecodeErrors
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)
	result += fmt.Sprintf("  Echo:             %5d\n", s.EchoFrames)
	result += fmt.Sprintf("  Sensor CSV:       %5d\n", s.SensorFrames)
	result += fmt.Sprintf("  Binary:           %5d\n", s.BinaryFrames)
	if s.UnknownFrames > 0 {
		result += fmt.Sprintf("  Unknown type:     %5d\n", s.UnknownFrames)
	}
	if s.ShortFrames > 0 {
		result += fmt.Sprintf("Short Frames:    %8d\n", s.ShortFrames)
	}
	if s.TruncatedFrames > 0 {
		result += fmt.Sprintf("Truncated Addr:  %8d\n", s.TruncatedFrames)
	}
	if s.LinkDecodeErrors > 0 {
		result += fmt.Sprintf("Link Errors:     %8d\n", s.LinkDecodeErrors)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
