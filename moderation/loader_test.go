package moderation

import (
	errs "chat-relay/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadWords(t *testing.T) {
	req := require.New(t)

	// Given two dictionaries sharing a word, and files to ignore
	fsys := fstest.MapFS{
		"censored/en.txt":        {Data: []byte("badger\r\nsnake\n\n  mushroom  \n")},
		"censored/fr.txt":        {Data: []byte("blaireau\nbadger\n")},
		"censored/README.md":     {Data: []byte("not a dictionary")},
		"censored/nested/de.txt": {Data: []byte("dachs")},
	}

	data, err := LoadWords(fsys, "censored")

	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
	req.ElementsMatch([]string{"badger", "snake", "mushroom", "blaireau"}, data.Words)
}

func TestLoadWords_Empty(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{"censored/en.txt": {Data: []byte("\n \n")}}

	_, err := LoadWords(fsys, "censored")

	req.ErrorIs(err, errs.ErrEmptyWords)
}

func TestLoadWords_Missing_Directory(t *testing.T) {
	_, err := LoadWords(fstest.MapFS{}, "censored")

	require.Error(t, err)
}
