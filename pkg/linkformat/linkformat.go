// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package linkformat renders the RFC 6690 CoRE Link Format listing served
// at /.well-known/core.
//
// Each resource becomes one link:
//
//	</path>;if="...";rt="...";obs;title="...";sz=N;ct=N
//
// Empty string attributes and a zero size estimate are left out, "obs"
// appears only for observable resources and "ct" is always present.
// Links are separated by commas.
package linkformat

import (
	"strconv"
	"strings"

	"github.com/absmach/mcoap/pkg/resource"
)

// Path is the reserved discovery path, without the leading slash.
const Path = ".well-known/core"

// Encode renders resources in the given order.
func Encode(resources []resource.Resource) string {
	var b strings.Builder
	for i, r := range resources {
		if i > 0 {
			b.WriteByte(',')
		}
		writeLink(&b, r)
	}
	return b.String()
}

func writeLink(b *strings.Builder, r resource.Resource) {
	b.WriteString("</")
	b.WriteString(r.Name())
	b.WriteByte('>')

	writeQuoted(b, "if", r.InterfaceDescription())
	writeQuoted(b, "rt", r.ResourceType())
	if r.Observable() {
		b.WriteString(";obs")
	}
	writeQuoted(b, "title", r.Title())
	if sz := r.MaxSizeEstimate(); sz != 0 {
		b.WriteString(";sz=")
		b.WriteString(strconv.FormatUint(sz, 10))
	}
	b.WriteString(";ct=")
	b.WriteString(strconv.Itoa(int(r.ContentFormat())))
}

func writeQuoted(b *strings.Builder, attr, value string) {
	if value == "" {
		return
	}
	b.WriteByte(';')
	b.WriteString(attr)
	b.WriteString(`="`)
	b.WriteString(value)
	b.WriteByte('"')
}
