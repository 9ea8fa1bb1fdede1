/* Copyright (c) 2016 Jason Ish
 * All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions
 * are met:
 *
 * 1. Redistributions of source code must retain the above copyright
 *    notice, this list of conditions and the following disclaimer.
 * 2. Redistributions in binary form must reproduce the above copyright
 *    notice, this list of conditions and the following disclaimer in the
 *    documentation and/or other materials provided with the distribution.
 *
 * THIS SOFTWARE IS PROVIDED ``AS IS'' AND ANY EXPRESS OR IMPLIED
 * WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
 * DISCLAIMED. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY DIRECT,
 * INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES
 * (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
 * SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION)
 * HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT,
 * STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING
 * IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
 * POSSIBILITY OF SUCH DAMAGE.
 */

package triage

import (
	"github.com/jasonish/evebox-triage/bulk"
	"github.com/jasonish/evebox-triage/core"
	"github.com/pkg/errors"
)

type View string

const (
	ViewInbox     View = "inbox"
	ViewEscalated View = "escalated"
	ViewAlerts    View = "alerts"
)

func ParseView(name string) (View, error) {
	switch View(name) {
	case ViewInbox, ViewEscalated, ViewAlerts:
		return View(name), nil
	case "":
		return ViewInbox, nil
	}
	return "", errors.Errorf("unknown view: %s", name)
}

// Tags returns the tags alerts in the view must and must not have.
func (v View) Tags() (mustHave []string, mustNotHave []string) {
	switch v {
	case ViewInbox:
		return nil, []string{core.TagArchived}
	case ViewEscalated:
		return []string{core.TagEscalated}, nil
	}
	return nil, nil
}

// Check returns core.ErrInvalidForView if op is not allowed in the view.
func (v View) Check(op bulk.Op) error {
	if v == ViewEscalated && op == bulk.OpArchive {
		return errors.Wrap(core.ErrInvalidForView, "escalated alerts can not be archived")
	}
	return nil
}

// Removes returns true if applying op to a row takes it out of the view.
func (v View) Removes(op bulk.Op) bool {
	switch op {
	case bulk.OpDelete:
		return true
	case bulk.OpArchive:
		return v == ViewInbox
	case bulk.OpDeEscalate:
		return v == ViewEscalated
	}
	return false
}
