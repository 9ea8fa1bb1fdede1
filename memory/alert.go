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

package memory

import (
	"time"

	"github.com/jasonish/evebox-triage/eve"
	"github.com/jasonish/evebox-triage/util"
)

// NewAlertEvent builds an Eve alert event.
func NewAlertEvent(signatureID uint64, signature string, srcIP string,
	destIP string, timestamp time.Time, tags ...string) eve.EveEvent {
	if tags == nil {
		tags = []string{}
	}
	raw := util.ToJson(map[string]interface{}{
		"timestamp":  eve.FormatTimestamp(timestamp),
		"event_type": "alert",
		"src_ip":     srcIP,
		"dest_ip":    destIP,
		"tags":       tags,
		"alert": map[string]interface{}{
			"signature_id": signatureID,
			"signature":    signature,
			"severity":     2,
		},
	})
	event, err := eve.NewEveEventFromString(raw)
	if err != nil {
		panic(err)
	}
	return event
}
