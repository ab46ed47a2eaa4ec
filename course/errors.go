// Copyright 2020 The Hyperschedule Authors
// This file is part of the hyperschedule library.
//
// The hyperschedule library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The hyperschedule library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the hyperschedule library. If not, see <http://www.gnu.org/licenses/>.

package course

import "fmt"

// UserError is an error caused by a malformed or unsatisfiable client
// request. The dispatcher reports it to the client in the response envelope
// instead of logging it server-side.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

// NewUserError formats a client-visible error.
func NewUserError(format string, args ...interface{}) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}
