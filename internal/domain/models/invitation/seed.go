package invitation

import (
	"fmt"

	"github.com/google/uuid"
)

// Seed selects the initial content of a new document.
type Seed string

const (
	SeedBlank  Seed = "blank"
	SeedSample Seed = "sample"
)

// NewBlockID returns a fresh block id.
func NewBlockID(t BlockType) string {
	return fmt.Sprintf("%s-%s", t, uuid.NewString()[:8])
}

// SeedBlocks returns the starting blocks and wedding data for a seed.
func SeedBlocks(seed Seed) ([]Block, WeddingData, error) {
	switch seed {
	case SeedBlank, "":
		return []Block{
			{ID: "hero", Type: BlockHero, Content: &HeroContent{}, Visible: true},
			{ID: "rsvp", Type: BlockRSVP, Content: &RSVPContent{}, Visible: true},
		}, WeddingData{}, nil
	case SeedSample:
		return sampleBlocks(), sampleWeddingData(), nil
	default:
		return nil, WeddingData{}, fmt.Errorf("unknown seed %q", seed)
	}
}

func sampleWeddingData() WeddingData {
	return WeddingData{
		PartnerOne:   "Alex",
		PartnerTwo:   "Sam",
		Date:         "2027-06-12",
		Time:         "16:00",
		VenueName:    "The Old Orchard",
		VenueAddress: "12 Orchard Lane, Springfield",
		Hashtag:      "#AlexAndSam",
	}
}

func sampleBlocks() []Block {
	lat, lng := 40.7128, -74.0060
	return []Block{
		{ID: "hero", Type: BlockHero, Visible: true, Content: &HeroContent{
			Title:    "Save the Date",
			Subtitle: "Alex & Sam are getting married",
			Date:     "2027-06-12",
		}},
		{ID: "countdown", Type: BlockCountdown, Visible: true, Content: &CountdownContent{
			Label:      "Until we say I do",
			TargetTime: "2027-06-12T16:00:00Z",
		}},
		{ID: "story", Type: BlockStory, Visible: true, Content: &StoryContent{
			Heading: "Our Story",
			Body:    "We met on a rainy Tuesday and never stopped talking.",
		}},
		{ID: "gallery", Type: BlockGallery, Visible: true, Content: &GalleryContent{
			Heading: "Moments",
			Layout:  GalleryLayoutGrid,
		}},
		{ID: "schedule", Type: BlockSchedule, Visible: true, Content: &ScheduleContent{
			Heading: "The Day",
			Events: []ScheduleEvent{
				{Time: "16:00", Title: "Ceremony"},
				{Time: "18:00", Title: "Dinner"},
				{Time: "20:00", Title: "Dancing"},
			},
		}},
		{ID: "map", Type: BlockMap, Visible: true, Content: &MapContent{
			Heading:   "Getting There",
			VenueName: "The Old Orchard",
			Address:   "12 Orchard Lane, Springfield",
			Latitude:  &lat,
			Longitude: &lng,
		}},
		{ID: "rsvp", Type: BlockRSVP, Visible: true, Content: &RSVPContent{
			Heading:   "Will you join us?",
			Deadline:  "2027-05-01",
			MaxGuests: 2,
		}},
		{ID: "gift-info", Type: BlockGiftInfo, Visible: true, Content: &GiftInfoContent{
			Heading: "Gifts",
			Message: "Your presence is the greatest gift.",
		}},
		{ID: "closing", Type: BlockClosing, Visible: true, Content: &ClosingContent{
			Title:     "See you there",
			Signature: "Alex & Sam",
		}},
	}
}
