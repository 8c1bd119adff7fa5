package format

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackEncoder writes the same report as JSONEncoder in MessagePack
// form. Consecutive documents are concatenated without framing, which
// msgpack decoders read back as a stream of values.
type MsgpackEncoder struct {
	w   io.Writer
	doc Document
}

func NewMsgpackEncoder(w io.Writer) *MsgpackEncoder {
	return &MsgpackEncoder{w: w}
}

func (e *MsgpackEncoder) Encode(doc Document) error {
	e.doc = doc
	data, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(data)
	return err
}

func (e *MsgpackEncoder) MarshalText() ([]byte, error) {
	return msgpack.Marshal(buildReport(e.doc))
}
