package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"forum/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Preset lists fixed topics to create before random data. Example:
//
//	topics:
//	  - title: Announcements
//	    description: News from the moderators.
type Preset struct {
	Topics []PresetTopic `yaml:"topics"`
}

type PresetTopic struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// ParsePreset decodes a YAML preset and rejects topics without a title.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	for i, t := range p.Topics {
		if strings.TrimSpace(t.Title) == "" {
			return nil, fmt.Errorf("preset topic %d has no title", i)
		}
	}
	return &p, nil
}

// LoadPreset reads and parses the preset at path.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(data)
}

// ApplyPreset creates the preset topics that do not exist yet, matching by title.
func (f *Factory) ApplyPreset(ctx context.Context, p *Preset) ([]*models.Topic, error) {
	topics := make([]*models.Topic, 0, len(p.Topics))
	for _, item := range p.Topics {
		var existing models.Topic
		err := f.db.WithContext(ctx).Where("title = ?", item.Title).First(&existing).Error
		switch {
		case err == nil:
			topics = append(topics, &existing)
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}

		item := item
		topic, err := f.CreateTopic(ctx, func(t *models.Topic) {
			t.Title = item.Title
			t.Description = item.Description
		})
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}
