package invitation

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"vowcraft/internal/config"
)

// Content is the type-specific payload of a block. Each block type owns exactly
// one concrete implementation; the set is closed (see contentFactories).
type Content interface {
	BlockType() BlockType
	Validate() error
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Shared rule sets
var (
	shortText = []validation.Rule{validation.Length(0, config.MaxShortFieldLength)}
	longText  = []validation.Rule{validation.Length(0, config.MaxTextFieldLength)}
	listSize  = validation.Length(0, config.MaxListItems)
)

// HeroContent is the invitation cover.
type HeroContent struct {
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Date     string `json:"date,omitempty"` // YYYY-MM-DD
	ImageURL string `json:"image_url,omitempty"`
}

func (c *HeroContent) BlockType() BlockType { return BlockHero }

func (c *HeroContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, shortText...),
		validation.Field(&c.Subtitle, shortText...),
		validation.Field(&c.Date, validation.Date(dateLayout)),
		validation.Field(&c.ImageURL, is.URL),
	)
}

// CountdownContent counts down to the ceremony.
type CountdownContent struct {
	Label      string `json:"label,omitempty"`
	TargetTime string `json:"target_time,omitempty"` // RFC 3339
}

func (c *CountdownContent) BlockType() BlockType { return BlockCountdown }

func (c *CountdownContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Label, shortText...),
		validation.Field(&c.TargetTime, validation.Date(time.RFC3339)),
	)
}

// StoryChapter is one milestone of the couple's story.
type StoryChapter struct {
	Year  string `json:"year,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
}

func (s StoryChapter) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Year, validation.Length(0, 16)),
		validation.Field(&s.Title, shortText...),
		validation.Field(&s.Text, longText...),
	)
}

// StoryContent tells how the couple met.
type StoryContent struct {
	Heading  string         `json:"heading,omitempty"`
	Body     string         `json:"body,omitempty"`
	Chapters []StoryChapter `json:"chapters,omitempty"`
}

func (c *StoryContent) BlockType() BlockType { return BlockStory }

func (c *StoryContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Heading, shortText...),
		validation.Field(&c.Body, longText...),
		validation.Field(&c.Chapters, listSize),
	)
}

// Gallery layouts
const (
	GalleryLayoutGrid     = "grid"
	GalleryLayoutCarousel = "carousel"
	GalleryLayoutMasonry  = "masonry"
)

// GalleryImage is a single photo reference. Upload storage is external; only URLs live here.
type GalleryImage struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

func (g GalleryImage) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.URL, validation.Required, is.URL),
		validation.Field(&g.Caption, shortText...),
	)
}

// GalleryContent is a photo gallery.
type GalleryContent struct {
	Heading string         `json:"heading,omitempty"`
	Layout  string         `json:"layout,omitempty"`
	Images  []GalleryImage `json:"images,omitempty"`
}

func (c *GalleryContent) BlockType() BlockType { return BlockGallery }

func (c *GalleryContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Heading, shortText...),
		validation.Field(&c.Layout, validation.In(GalleryLayoutGrid, GalleryLayoutCarousel, GalleryLayoutMasonry)),
		validation.Field(&c.Images, listSize),
	)
}

// ScheduleEvent is one entry of the day's programme.
type ScheduleEvent struct {
	Time        string `json:"time"` // HH:MM
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (e ScheduleEvent) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Time, validation.Required, validation.Date(clockLayout)),
		validation.Field(&e.Title, validation.Required, validation.Length(1, config.MaxShortFieldLength)),
		validation.Field(&e.Description, longText...),
	)
}

// ScheduleContent lists the events of the day.
type ScheduleContent struct {
	Heading string          `json:"heading,omitempty"`
	Events  []ScheduleEvent `json:"events,omitempty"`
}

func (c *ScheduleContent) BlockType() BlockType { return BlockSchedule }

func (c *ScheduleContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Heading, shortText...),
		validation.Field(&c.Events, listSize),
	)
}

// MapContent locates the venue.
type MapContent struct {
	Heading   string   `json:"heading,omitempty"`
	VenueName string   `json:"venue_name,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (c *MapContent) BlockType() BlockType { return BlockMap }

func (c *MapContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Heading, shortText...),
		validation.Field(&c.VenueName, shortText...),
		validation.Field(&c.Address, longText...),
		validation.Field(&c.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&c.Longitude, validation.Min(-180.0), validation.Max(180.0)),
	)
}

// RSVPContent configures the reply form.
type RSVPContent struct {
	Heading   string `json:"heading,omitempty"`
	Message   string `json:"message,omitempty"`
	Deadline  string `json:"deadline,omitempty"` // YYYY-MM-DD
	MaxGuests int    `json:"max_guests,omitempty"`
	AskMeal   bool   `json:"ask_meal,omitempty"`
}

func (c *RSVPContent) BlockType() BlockType { return BlockRSVP }

func (c *RSVPContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Heading, shortText...),
		validation.Field(&c.Message, longText...),
		validation.Field(&c.Deadline, validation.Date(dateLayout)),
		validation.Field(&c.MaxGuests, validation.Min(0), validation.Max(20)),
	)
}

// GiftAccount is a bank account guests may send gifts to.
type GiftAccount struct {
	Bank   string `json:"bank"`
	Holder string `json:"holder"`
	Number string `json:"number"`
}

func (a GiftAccount) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Bank, validation.Required, validation.Length(1, config.MaxShortFieldLength)),
		validation.Field(&a.Holder, validation.Required, validation.Length(1, config.MaxShortFieldLength)),
		validation.Field(&a.Number, validation.Required, validation.Length(1, 64)),
	)
}

// GiftInfoContent tells guests how to send gifts.
type GiftInfoContent struct {
	Heading  string        `json:"heading,omitempty"`
	Message  string        `json:"message,omitempty"`
	Accounts []GiftAccount `json:"accounts,omitempty"`
}

func (c *GiftInfoContent) BlockType() BlockType { return BlockGiftInfo }

func (c *GiftInfoContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Heading, shortText...),
		validation.Field(&c.Message, longText...),
		validation.Field(&c.Accounts, validation.Length(0, 10)),
	)
}

// DressCodeContent describes the expected attire.
type DressCodeContent struct {
	Heading     string   `json:"heading,omitempty"`
	Description string   `json:"description,omitempty"`
	Colors      []string `json:"colors,omitempty"` // hex swatches
}

func (c *DressCodeContent) BlockType() BlockType { return BlockDressCode }

func (c *DressCodeContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Heading, shortText...),
		validation.Field(&c.Description, longText...),
		validation.Field(&c.Colors, validation.Length(0, 12), validation.Each(validation.Match(hexColorPattern))),
	)
}

// FAQItem is one question and answer.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (f FAQItem) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Question, validation.Required, validation.Length(1, config.MaxShortFieldLength)),
		validation.Field(&f.Answer, longText...),
	)
}

// FAQContent answers common guest questions.
type FAQContent struct {
	Heading string    `json:"heading,omitempty"`
	Items   []FAQItem `json:"items,omitempty"`
}

func (c *FAQContent) BlockType() BlockType { return BlockFAQ }

func (c *FAQContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Heading, shortText...),
		validation.Field(&c.Items, listSize),
	)
}

// ClosingContent is the sign-off at the end of the invitation.
type ClosingContent struct {
	Title     string `json:"title,omitempty"`
	Message   string `json:"message,omitempty"`
	Signature string `json:"signature,omitempty"`
}

func (c *ClosingContent) BlockType() BlockType { return BlockClosing }

func (c *ClosingContent) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, shortText...),
		validation.Field(&c.Message, longText...),
		validation.Field(&c.Signature, shortText...),
	)
}
