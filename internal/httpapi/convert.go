package httpapi

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

var errMalformedProto = errors.New("malformed protobuf payload")

// ── Access ───────────────────────────────────────────────────────────────────
//
// message AccessRequest {
//   string gate_id = 1; string vehicle_id = 2;
//   string license_plate = 3; string requested_at = 4;
// }
//
// message AccessResponse {
//   bool ok = 1; bool known = 2; bool granted = 3; string reason = 4;
//   string gate_id = 5; string vehicle_id = 6; string server_time = 7;
// }

func decodeAccessRequest(b []byte) (types.AccessRequest, error) {
	var req types.AccessRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return types.AccessRequest{}, errMalformedProto
		}
		b = b[n:]

		var dst *string
		if typ == protowire.BytesType {
			switch num {
			case 1:
				dst = &req.GateID
			case 2:
				dst = &req.VehicleID
			case 3:
				dst = &req.LicensePlate
			case 4:
				dst = &req.RequestedAt
			}
		}
		if dst == nil {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return types.AccessRequest{}, errMalformedProto
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return types.AccessRequest{}, errMalformedProto
		}
		*dst = string(v)
		b = b[n:]
	}
	return req, nil
}

// encodeAccessResponse omits zero-valued fields, as proto3 does.
func encodeAccessResponse(r types.AccessResponse) []byte {
	var out []byte
	appendBool := func(num protowire.Number, v bool) {
		if v {
			out = protowire.AppendTag(out, num, protowire.VarintType)
			out = protowire.AppendVarint(out, protowire.EncodeBool(v))
		}
	}
	appendString := func(num protowire.Number, v string) {
		if v != "" {
			out = protowire.AppendTag(out, num, protowire.BytesType)
			out = protowire.AppendString(out, v)
		}
	}

	appendBool(1, r.OK)
	appendBool(2, r.Known)
	appendBool(3, r.Granted)
	appendString(4, r.Reason)
	appendString(5, r.GateID)
	appendString(6, r.VehicleID)
	appendString(7, r.ServerTime)
	return out
}
