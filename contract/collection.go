package contract

import (
	"fmt"
	"strings"
)

func (s *session) handleCreateCollection(body *CollectionCommand) error {
	creator := strings.ToLower(s.entry.Sender)

	minSize := 1
	if _, err := s.getJSON(KeyMinCollectionSize, &minSize); err != nil {
		return err
	}
	if body.CollectionSize < minSize {
		return fmt.Errorf("%w: collection size %d is below the minimum of %d", ErrValidation, body.CollectionSize, minSize)
	}

	var collections []Collection
	if _, err := s.getJSON(KeyCollections, &collections); err != nil {
		return err
	}
	for _, c := range collections {
		if c.Name == body.CollectionName {
			return fmt.Errorf("%w: collection %q already exists", ErrConflict, body.CollectionName)
		}
	}

	collections = append(collections, Collection{
		ID:          s.entry.TraceID,
		Name:        body.CollectionName,
		Description: body.CollectionDescription,
		Banner:      body.BannerFileID,
		Manifest:    body.ManifestFileID,
		Size:        body.CollectionSize,
		Creator:     creator,
	})
	return s.put(KeyCollections, collections)
}
