// go-ecf
// Copyright (c) 2025 The go-ecf Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ecf.
//
// go-ecf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ecf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ecf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package probe

import "time"

// Status is the probed availability of a printer
type Status int

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// State tracks probe results
type State struct {
	LastSeen  time.Time
	LastError error
	LastReply []byte
	Failures  int
	Status    Status
}

// TransitionToOnline records a complete reply and reports whether the
// status changed
func (s *State) TransitionToOnline(reply []byte) bool {
	changed := s.Status != StatusOnline
	s.Status = StatusOnline
	s.LastReply = reply
	s.LastSeen = time.Now()
	s.LastError = nil
	s.Failures = 0
	return changed
}

// RecordFailure counts a failed probe. The status moves to offline once
// threshold consecutive failures are seen; the return value reports
// that transition.
func (s *State) RecordFailure(err error, threshold int) bool {
	s.LastError = err
	s.Failures++
	if s.Failures < threshold || s.Status == StatusOffline {
		return false
	}
	s.Status = StatusOffline
	return true
}
