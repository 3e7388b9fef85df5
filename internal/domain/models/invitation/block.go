package invitation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

// BlockType identifies one of the closed set of invitation block kinds.
type BlockType string

// Block type catalog
const (
	BlockHero      BlockType = "hero"
	BlockCountdown BlockType = "countdown"
	BlockStory     BlockType = "story"
	BlockGallery   BlockType = "gallery"
	BlockSchedule  BlockType = "schedule"
	BlockMap       BlockType = "map"
	BlockRSVP      BlockType = "rsvp"
	BlockGiftInfo  BlockType = "gift-info"
	BlockDressCode BlockType = "dress-code"
	BlockFAQ       BlockType = "faq"
	BlockClosing   BlockType = "closing"
)

// contentFactories maps each block type to a constructor for its empty content.
// This map is the block type catalog: a type absent here does not exist.
var contentFactories = map[BlockType]func() Content{
	BlockHero:      func() Content { return &HeroContent{} },
	BlockCountdown: func() Content { return &CountdownContent{} },
	BlockStory:     func() Content { return &StoryContent{} },
	BlockGallery:   func() Content { return &GalleryContent{} },
	BlockSchedule:  func() Content { return &ScheduleContent{} },
	BlockMap:       func() Content { return &MapContent{} },
	BlockRSVP:      func() Content { return &RSVPContent{} },
	BlockGiftInfo:  func() Content { return &GiftInfoContent{} },
	BlockDressCode: func() Content { return &DressCodeContent{} },
	BlockFAQ:       func() Content { return &FAQContent{} },
	BlockClosing:   func() Content { return &ClosingContent{} },
}

// AllBlockTypes lists the catalog in a stable order.
var AllBlockTypes = []BlockType{
	BlockHero, BlockCountdown, BlockStory, BlockGallery, BlockSchedule, BlockMap,
	BlockRSVP, BlockGiftInfo, BlockDressCode, BlockFAQ, BlockClosing,
}

// IsKnownBlockType reports whether t belongs to the block type catalog.
func IsKnownBlockType(t BlockType) bool {
	_, ok := contentFactories[t]
	return ok
}

// NewContent returns the empty (default) content payload for a block type.
func NewContent(t BlockType) (Content, error) {
	factory, ok := contentFactories[t]
	if !ok {
		return nil, fmt.Errorf("unknown block type %q", t)
	}
	return factory(), nil
}

// DecodeContent decodes a raw payload into the strongly typed content for t.
// Unknown fields and mistyped values are rejected.
func DecodeContent(t BlockType, raw []byte) (Content, error) {
	content, err := NewContent(t)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return content, nil
	}
	if err := strictUnmarshal(raw, content); err != nil {
		return nil, fmt.Errorf("%s content: %w", t, err)
	}
	return content, nil
}

// blockIDPattern keeps ids usable as path segments. "-" is reserved for append.
var blockIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// IsValidBlockID reports whether id can address a block in a patch path.
func IsValidBlockID(id string) bool {
	return blockIDPattern.MatchString(id)
}

// Block is a typed, independently addressable unit of invitation content.
type Block struct {
	ID      string        `json:"id"`
	Type    BlockType     `json:"type"`
	Content Content       `json:"content"`
	Style   StyleOverride `json:"style,omitempty"`
	Visible bool          `json:"visible"`
}

// NewBlock creates a visible block of type t with empty content.
func NewBlock(id string, t BlockType) (Block, error) {
	content, err := NewContent(t)
	if err != nil {
		return Block{}, err
	}
	return Block{ID: id, Type: t, Content: content, Visible: true}, nil
}

type blockJSON struct {
	ID      string          `json:"id"`
	Type    BlockType       `json:"type"`
	Content json.RawMessage `json:"content"`
	Style   StyleOverride   `json:"style,omitempty"`
	Visible bool            `json:"visible"`
}

// UnmarshalJSON decodes the content payload according to the block's type tag.
func (b *Block) UnmarshalJSON(data []byte) error {
	var aux blockJSON
	if err := strictUnmarshal(data, &aux); err != nil {
		return fmt.Errorf("block: %w", err)
	}
	content, err := DecodeContent(aux.Type, aux.Content)
	if err != nil {
		return err
	}
	*b = Block{
		ID:      aux.ID,
		Type:    aux.Type,
		Content: content,
		Style:   aux.Style,
		Visible: aux.Visible,
	}
	return nil
}

// MarshalJSON always emits a content object, even for empty payloads.
func (b Block) MarshalJSON() ([]byte, error) {
	content := b.Content
	if content == nil {
		var err error
		if content, err = NewContent(b.Type); err != nil {
			return nil, err
		}
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(blockJSON{
		ID:      b.ID,
		Type:    b.Type,
		Content: raw,
		Style:   b.Style,
		Visible: b.Visible,
	})
}

// DecodeStrict decodes JSON into v, rejecting unknown fields and trailing data.
func DecodeStrict(data []byte, v interface{}) error {
	return strictUnmarshal(data, v)
}

func strictUnmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}
