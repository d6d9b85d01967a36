package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
)

const songsPath = "/api/songs"

// SongService is the gateway to /api/songs. Its client must authorize requests with the session token.
type SongService struct {
	api *APIService
}

func NewSongService(api *APIService) *SongService {
	return &SongService{api: api}
}

// List returns every song visible to the session.
func (s *SongService) List(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	if err := s.api.Do(ctx, Request{Op: OpListSongs, Method: http.MethodGet, Path: songsPath}, &songs); err != nil {
		return nil, err
	}
	if songs == nil {
		songs = []models.Song{}
	}
	return songs, nil
}

// Get returns a single song. A 404 also matches [shared.ErrSongNotFound].
func (s *SongService) Get(ctx context.Context, id models.SongID) (*models.Song, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	var song models.Song
	if err := s.api.Do(ctx, Request{Op: OpGetSong, Method: http.MethodGet, Path: songPath(id)}, &song); err != nil {
		return nil, notFound(id, err)
	}
	return &song, nil
}

// Create stores a new song and returns it with its server-assigned id.
func (s *SongService) Create(ctx context.Context, in models.SongInput) (*models.Song, error) {
	var song models.Song
	if err := s.api.Do(ctx, Request{Op: OpCreateSong, Method: http.MethodPost, Path: songsPath, Body: in}, &song); err != nil {
		return nil, err
	}
	return &song, nil
}

// Update replaces the editable fields of song id.
func (s *SongService) Update(ctx context.Context, id models.SongID, in models.SongInput) (*models.Song, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	var song models.Song
	if err := s.api.Do(ctx, Request{Op: OpUpdateSong, Method: http.MethodPut, Path: songPath(id), Body: in}, &song); err != nil {
		return nil, notFound(id, err)
	}
	if song.ID == "" {
		song = in.Apply(models.Song{ID: id})
	}
	return &song, nil
}

// Delete removes song id.
func (s *SongService) Delete(ctx context.Context, id models.SongID) error {
	if id == "" {
		return fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}
	if err := s.api.Do(ctx, Request{Op: OpDeleteSong, Method: http.MethodDelete, Path: songPath(id)}, nil); err != nil {
		return notFound(id, err)
	}
	return nil
}

func songPath(id models.SongID) string {
	return songsPath + "/" + url.PathEscape(id.String())
}

func notFound(id models.SongID, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %s: %w", shared.ErrSongNotFound, id, err)
	}
	return err
}
