// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package linkformat

import (
	"testing"

	"github.com/absmach/mcoap/pkg/resource"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/stretchr/testify/assert"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		resources func() []resource.Resource
		want      string
	}{
		{
			name:      "empty registry",
			resources: func() []resource.Resource { return nil },
			want:      "",
		},
		{
			name: "registration order",
			resources: func() []resource.Resource {
				reg := resource.NewRegistry()
				reg.Create("temp", message.TextPlain, true)
				reg.Create("led", message.TextPlain, false)
				return reg.All()
			},
			want: `</temp>;obs;ct=0,</led>;ct=0`,
		},
		{
			name: "resource type",
			resources: func() []resource.Resource {
				reg := resource.NewRegistry()
				reg.Create("temp", message.TextPlain, true).SetResourceType("temperature")
				reg.Create("led", message.TextPlain, false)
				return reg.All()
			},
			want: `</temp>;rt="temperature";obs;ct=0,</led>;ct=0`,
		},
		{
			name: "all attributes",
			resources: func() []resource.Resource {
				r := resource.NewFunctional("sensors/env", message.AppCBOR, true).
					SetInterfaceDescription("core.s").
					SetResourceType("env").
					SetTitle("Environment").
					SetMaxSizeEstimate(128)
				return []resource.Resource{r}
			},
			want: `</sensors/env>;if="core.s";rt="env";obs;title="Environment";sz=128;ct=60`,
		},
		{
			name: "link format content type",
			resources: func() []resource.Resource {
				return []resource.Resource{resource.NewFunctional("dir", message.AppLinkFormat, false)}
			},
			want: `</dir>;ct=40`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.resources()))
		})
	}
}
