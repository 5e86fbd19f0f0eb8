// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package coap

import (
	"strings"

	"github.com/plgd-dev/go-coap/v3/message"
)

// ContentFormatOption returns a Content-Format option for mt.
func ContentFormatOption(mt message.MediaType) message.Option {
	return message.Option{ID: message.ContentFormat, Value: encodeUint(uint32(mt))}
}

// ObserveOption returns an Observe option carrying seq.
func ObserveOption(seq uint32) message.Option {
	return message.Option{ID: message.Observe, Value: encodeUint(seq)}
}

// URIPathOptions splits path into one URI-Path option per segment.
// Empty segments are skipped.
func URIPathOptions(path string) message.Options {
	var opts message.Options
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		opts = append(opts, message.Option{ID: message.URIPath, Value: []byte(seg)})
	}
	return opts
}

// encodeUint uses the minimal big-endian form of RFC 7252 section 3.2;
// zero encodes to an empty value.
func encodeUint(v uint32) []byte {
	buf := make([]byte, 4)
	n, _ := message.EncodeUint32(buf, v)
	return buf[:n]
}

// requestPath joins the URI-Path segments of opts in option order.
func requestPath(opts message.Options) string {
	var b strings.Builder
	for _, opt := range opts {
		if opt.ID != message.URIPath || len(opt.Value) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.Write(opt.Value)
	}
	return b.String()
}

func observeOption(opts message.Options) (message.Option, bool) {
	for _, opt := range opts {
		if opt.ID == message.Observe {
			return opt, true
		}
	}
	return message.Option{}, false
}

// isObserveCancel reports a deregistration request: Observe value 1.
func isObserveCancel(opt message.Option) bool {
	return len(opt.Value) > 0 && opt.Value[0] == 1
}
