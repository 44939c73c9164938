package webrtc

import (
	"bytes"
	"testing"

	"go.viam.com/test"
)

func TestChunks(t *testing.T) {
	for _, size := range []int{0, 1, maxChunkSize, maxChunkSize + 1, 3*maxChunkSize + 7} {
		data := bytes.Repeat([]byte{0xab}, size)
		chunks := splitChunks(data)
		for i, chunk := range chunks {
			test.That(t, len(chunk), test.ShouldBeLessThanOrEqualTo, maxChunkSize+1)
			if i == len(chunks)-1 {
				test.That(t, chunk[0], test.ShouldEqual, chunkFinal)
			} else {
				test.That(t, chunk[0], test.ShouldEqual, chunkMore)
			}
		}

		var r reassembler
		for i, chunk := range chunks {
			payload, done, err := r.add(chunk)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, done, test.ShouldEqual, i == len(chunks)-1)
			if done {
				test.That(t, len(payload), test.ShouldEqual, size)
				test.That(t, bytes.Equal(payload, data), test.ShouldBeTrue)
			}
		}
	}
}

func TestReassemblerRejects(t *testing.T) {
	var r reassembler
	_, _, err := r.add(nil)
	test.That(t, err, test.ShouldNotBeNil)

	// a bad flag drops everything up to the next final chunk
	_, _, err = r.add([]byte{7, 1, 2})
	test.That(t, err, test.ShouldNotBeNil)
	_, done, err := r.add([]byte{chunkFinal, 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, done, test.ShouldBeFalse)

	payload, done, err := r.add([]byte{chunkFinal, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, done, test.ShouldBeTrue)
	test.That(t, payload, test.ShouldResemble, []byte{4})
}

func TestReassemblerSkipsOversizedPayload(t *testing.T) {
	oversized := bytes.Repeat([]byte{0xee}, maxReassembleSize+3*maxChunkSize)
	valid := bytes.Repeat([]byte{0x11}, 2*maxChunkSize+5)

	var r reassembler
	var delivered [][]byte
	var errs int
	for _, chunk := range append(splitChunks(oversized), splitChunks(valid)...) {
		payload, done, err := r.add(chunk)
		if err != nil {
			errs++
			continue
		}
		if done {
			delivered = append(delivered, payload)
		}
	}
	test.That(t, errs, test.ShouldEqual, 1)
	test.That(t, delivered, test.ShouldHaveLength, 1)
	test.That(t, bytes.Equal(delivered[0], valid), test.ShouldBeTrue)

	// a payload overflowing on its final chunk needs no skipping
	r = reassembler{buf: make([]byte, maxReassembleSize)}
	_, _, err := r.add([]byte{chunkFinal, 1})
	test.That(t, err, test.ShouldNotBeNil)
	payload, done, err := r.add([]byte{chunkFinal, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, done, test.ShouldBeTrue)
	test.That(t, payload, test.ShouldResemble, []byte{2})
}
