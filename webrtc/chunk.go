package webrtc

import (
	"github.com/pkg/errors"

	"github.com/edaniels/gopointer/transport"
)

// SCTP messages above 64KiB are refused by some stacks, so reliable payloads
// are split. Every message on the assets channel is [more:1][chunk...];
// more is 1 while further chunks of the same payload follow.
const (
	maxChunkSize      = 16 * 1024
	maxReassembleSize = transport.MaxPayloadSize
)

const (
	chunkFinal byte = 0
	chunkMore  byte = 1
)

// splitChunks frames data as one or more assets channel messages.
func splitChunks(data []byte) [][]byte {
	if len(data) == 0 {
		return [][]byte{{chunkFinal}}
	}
	chunks := make([][]byte, 0, len(data)/maxChunkSize+1)
	for len(data) > 0 {
		n := len(data)
		flag := chunkFinal
		if n > maxChunkSize {
			n = maxChunkSize
			flag = chunkMore
		}
		msg := make([]byte, n+1)
		msg[0] = flag
		copy(msg[1:], data[:n])
		chunks = append(chunks, msg)
		data = data[n:]
	}
	return chunks
}

// A reassembler collects chunks of the assets channel back into payloads.
// It is only used from a single data channel's message callback.
type reassembler struct {
	buf []byte
	// discarding is set while the rest of a rejected payload arrives.
	discarding bool
}

// add consumes one message and returns the full payload once the final
// chunk arrived. Once a payload is rejected, its remaining chunks are
// dropped up to and including its final chunk.
func (r *reassembler) add(msg []byte) ([]byte, bool, error) {
	if len(msg) == 0 {
		return nil, false, errors.New("empty chunk")
	}
	flag := msg[0]
	if flag != chunkMore && flag != chunkFinal {
		r.reject(flag)
		return nil, false, errors.Errorf("bad chunk flag %d", flag)
	}
	if r.discarding {
		if flag == chunkFinal {
			r.discarding = false
		}
		return nil, false, nil
	}
	if len(r.buf)+len(msg)-1 > maxReassembleSize {
		r.reject(flag)
		return nil, false, errors.Errorf("payload exceeds %d bytes", maxReassembleSize)
	}
	r.buf = append(r.buf, msg[1:]...)
	if flag == chunkMore {
		return nil, false, nil
	}
	payload := r.buf
	r.buf = nil
	return payload, true, nil
}

// reject drops the payload in progress and, unless flag ended it, every
// chunk up to its end.
func (r *reassembler) reject(flag byte) {
	r.buf = nil
	r.discarding = flag != chunkFinal
}
