// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// HealthPingMethod is the built-in liveness method.
const HealthPingMethod = "/core.v1.HealthService/Ping"

// PingResponse is the core.v1.PingResponse message:
//
//	google.protobuf.Timestamp timestamp = 1;
//	string version = 2;
type PingResponse struct {
	Timestamp *timestamppb.Timestamp
	Version   string
}

// MarshalBinary encodes p in protobuf wire format.
func (p *PingResponse) MarshalBinary() ([]byte, error) {
	var b []byte
	if p.Timestamp != nil {
		ts, err := proto.Marshal(p.Timestamp)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, ts)
	}
	if p.Version != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, p.Version)
	}
	return b, nil
}

// UnmarshalBinary decodes protobuf wire format. Unknown fields are skipped.
func (p *PingResponse) UnmarshalBinary(data []byte) error {
	*p = PingResponse{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("ping response: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("ping response timestamp: %w", protowire.ParseError(n))
			}
			ts := new(timestamppb.Timestamp)
			if err := proto.Unmarshal(v, ts); err != nil {
				return fmt.Errorf("ping response timestamp: %w", err)
			}
			p.Timestamp = ts
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("ping response version: %w", protowire.ParseError(n))
			}
			p.Version = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("ping response: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

// RegisterHealth routes HealthPingMethod on r. The request is a
// google.protobuf.Empty and is not read.
func RegisterHealth(r *Router, version string) error {
	return r.RegisterRaw(HealthPingMethod, func(context.Context, []byte) ([]byte, error) {
		resp := &PingResponse{Timestamp: timestamppb.Now(), Version: version}
		return resp.MarshalBinary()
	})
}
