package windowing

import (
	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/petasbytes/chatmem/memory"
)

const (
	// messageOverhead covers <|im_start|>{role}\n ... <|im_end|>\n framing.
	messageOverhead = 4
	// replyPriming covers the tokens that open the assistant's reply.
	replyPriming = 2
)

// Encoder turns text into tokens and reports how many.
type Encoder interface {
	CountTokens(text string) int
}

// EncoderLoader resolves an encoding name to an Encoder.
type EncoderLoader func(encoding string) (Encoder, error)

type tiktokenEncoder struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenEncoder) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// LoadTiktoken loads a BPE encoding such as "cl100k_base". The ranks file is
// fetched on first use (cached under TIKTOKEN_CACHE_DIR), so this fails
// offline with an empty cache.
func LoadTiktoken(encoding string) (Encoder, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return tiktokenEncoder{enc: enc}, nil
}

// TiktokenCounter counts with a real BPE encoder using chat framing:
// 4 tokens per entry plus the encoded role and content, and 2 tokens of reply
// priming for any non-empty sequence.
type TiktokenCounter struct {
	encoding string
	enc      Encoder
}

// NewTiktokenCounter wraps enc; encoding names it for memoization.
func NewTiktokenCounter(encoding string, enc Encoder) *TiktokenCounter {
	return &TiktokenCounter{encoding: encoding, enc: enc}
}

func (c *TiktokenCounter) Encoding() string { return c.encoding }

func (c *TiktokenCounter) Exact() bool { return true }

func (c *TiktokenCounter) CountEntry(e memory.Entry) int {
	return messageOverhead + c.enc.CountTokens(string(e.Role)) + c.enc.CountTokens(e.Content)
}

func (c *TiktokenCounter) Count(seq []memory.Entry) int {
	if len(seq) == 0 {
		return 0
	}
	return sum(c, seq) + replyPriming
}
