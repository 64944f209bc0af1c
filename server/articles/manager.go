// Package articles owns the draft/published article state machine: the
// canonical per-article JSON documents, the per-status id lists, and the
// write-through metadata caches that back list views.
package articles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/rpublish/rpublish/pkg/iox"
)

// PlaceholderTitle is the title of a freshly created article.
const PlaceholderTitle = "Draft Article"

// Manager composes the two metadata caches and the two id lists on top of the
// canonical article files under <root>/articles/{draft,published}.
//
// An id may legitimately appear in both lists: editing a published article
// forks a draft, and the draft wins on every read until it is published or
// discarded. That same rule resolves the crash window of a non-atomic move
// (file present in both directories) at the next startup, without any repair
// step.
type Manager struct {
	log           logs.Log
	root          string
	draftMeta     *metadataCache
	publishedMeta *metadataCache
	draftList     []string
	publishedList []string
}

// NewManager scans the article directories for ids and rehydrates both
// metadata caches, reading any canonical file that has no cache entry yet.
// Missing directories are fatal; bootstrap is the caller's job.
func NewManager(log logs.Log, root string) (*Manager, error) {
	draftIDs, err := readIDs(filepath.Join(root, "articles", string(StatusDraft)))
	if err != nil {
		return nil, err
	}
	publishedIDs, err := readIDs(filepath.Join(root, "articles", string(StatusPublished)))
	if err != nil {
		return nil, err
	}
	draftMeta, err := newMetadataCache(log, filepath.Join(root, "cache", "metadata", string(StatusDraft)))
	if err != nil {
		return nil, err
	}
	publishedMeta, err := newMetadataCache(log, filepath.Join(root, "cache", "metadata", string(StatusPublished)))
	if err != nil {
		return nil, err
	}
	m := &Manager{
		log:           log,
		root:          root,
		draftMeta:     draftMeta,
		publishedMeta: publishedMeta,
		draftList:     draftIDs,
		publishedList: publishedIDs,
	}
	m.buildMetadata(StatusDraft)
	m.buildMetadata(StatusPublished)
	log.Infof("Articles loaded: %v draft, %v published", len(m.draftList), len(m.publishedList))
	return m, nil
}

func readIDs(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("Failed to read article directory %v: %w", dir, err)
	}
	ids := []string{}
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// buildMetadata fills cache holes from the canonical files. A file that can't
// be read is only a warning here; the id stays listed and the read path will
// surface the real error.
func (m *Manager) buildMetadata(status Status) {
	cache := m.metaFor(status)
	for _, id := range *m.listFor(status) {
		if cache.isCached(id) {
			continue
		}
		a, err := m.readArticle(id, status)
		if err != nil {
			m.log.Warnf("Failed to read article %v while building %v metadata: %v", id, status, err)
			continue
		}
		if err := cache.set(id, a); err != nil {
			m.log.Warnf("Failed to cache metadata of %v: %v", id, err)
		}
	}
}

func (m *Manager) articlePath(id string, status Status) string {
	return filepath.Join(m.root, "articles", string(status), id+".json")
}

func (m *Manager) metaFor(status Status) *metadataCache {
	if status == StatusDraft {
		return m.draftMeta
	}
	return m.publishedMeta
}

func (m *Manager) listFor(status Status) *[]string {
	if status == StatusDraft {
		return &m.draftList
	}
	return &m.publishedList
}

func (m *Manager) inList(status Status, id string) bool {
	for _, x := range *m.listFor(status) {
		if x == id {
			return true
		}
	}
	return false
}

func (m *Manager) removeFromList(status Status, id string) {
	list := m.listFor(status)
	for i, x := range *list {
		if x == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func (m *Manager) readArticle(id string, status Status) (*Article, error) {
	a := &Article{}
	if err := iox.ReadJSONFile(m.articlePath(id, status), a); err != nil {
		return nil, err
	}
	return a, nil
}

func (m *Manager) saveArticle(id string, a *Article, status Status) error {
	return iox.WriteJSONFile(m.articlePath(id, status), a)
}

// Create makes an empty draft article under an externally generated id.
// The id is trusted to be unique; a storage failure is surfaced, never swallowed.
func (m *Manager) Create(id, author string) error {
	now := time.Now().UTC()
	a := &Article{
		Title:       PlaceholderTitle,
		Author:      author,
		Data:        "",
		Tags:        []string{},
		CreatedDate: now,
		UpdateDate:  now,
	}
	if err := m.saveArticle(id, a, StatusDraft); err != nil {
		return err
	}
	if err := m.draftMeta.set(id, a); err != nil {
		return err
	}
	if !m.inList(StatusDraft, id) {
		m.draftList = append(m.draftList, id)
	}
	return nil
}

// ReadLatest returns the most current copy of the article. The draft always
// wins when both copies exist, so editors see their unpublished edits.
func (m *Manager) ReadLatest(id string) (*Latest, error) {
	if m.inList(StatusDraft, id) {
		a, err := m.readArticle(id, StatusDraft)
		if err != nil {
			return nil, err
		}
		latest := &Latest{
			Article:     a,
			Status:      StatusDraft,
			IsPublished: m.inList(StatusPublished, id),
		}
		if latest.IsPublished {
			if meta, ok := m.publishedMeta.get(id); ok {
				date := meta.UpdateDate
				latest.PublishedUpdateDate = &date
			}
		}
		return latest, nil
	}
	if m.inList(StatusPublished, id) {
		a, err := m.readArticle(id, StatusPublished)
		if err != nil {
			return nil, err
		}
		date := a.UpdateDate
		return &Latest{
			Article:             a,
			Status:              StatusPublished,
			IsPublished:         true,
			PublishedUpdateDate: &date,
		}, nil
	}
	return nil, ErrArticleNotFound
}

// ReadFrom returns the article's copy at a specific location, without the
// draft precedence rule. The public site reads published copies this way.
func (m *Manager) ReadFrom(id string, status Status) (*Article, error) {
	if !m.inList(status, id) {
		return nil, ErrArticleNotFound
	}
	return m.readArticle(id, status)
}

// Update writes a new draft copy with the given title and body. Editing an
// article that only exists as published implicitly forks a draft.
func (m *Manager) Update(id, title, data string) error {
	latest, err := m.ReadLatest(id)
	if err != nil {
		return err
	}
	a := latest.Article
	a.Title = title
	a.Data = data
	a.UpdateDate = time.Now().UTC()
	if err := m.saveArticle(id, a, StatusDraft); err != nil {
		return err
	}
	if err := m.draftMeta.set(id, a); err != nil {
		return err
	}
	if !m.inList(StatusDraft, id) {
		m.draftList = append(m.draftList, id)
	}
	return nil
}

// Publish relocates the draft copy to the published location.
// On relocation failure the id lists are untouched.
func (m *Manager) Publish(id string) error {
	if !m.inList(StatusDraft, id) {
		return ErrArticleNotFound
	}
	return m.move(id, StatusDraft, StatusPublished)
}

// Unpublish takes the article off the public site. When a draft fork exists
// the published copy is simply discarded (the draft remains authoritative);
// otherwise the published copy moves back to draft.
func (m *Manager) Unpublish(id string) error {
	if !m.inList(StatusPublished, id) {
		return ErrArticleNotFound
	}
	if m.inList(StatusDraft, id) {
		return m.removeCopy(id, StatusPublished)
	}
	return m.move(id, StatusPublished, StatusDraft)
}

// DiscardChanges throws away the draft fork of a published article.
func (m *Manager) DiscardChanges(id string) error {
	if !m.inList(StatusPublished, id) {
		return ErrArticleNotFound
	}
	if !m.inList(StatusDraft, id) {
		// No pending changes. Discarding nothing is fine.
		return nil
	}
	return m.removeCopy(id, StatusDraft)
}

// Delete removes the article from both locations. Each copy is individually
// tolerant of being absent; an id known to neither list is ArticleNotFound.
func (m *Manager) Delete(id string) error {
	inDraft := m.inList(StatusDraft, id)
	inPublished := m.inList(StatusPublished, id)
	if !inDraft && !inPublished {
		return ErrArticleNotFound
	}
	if inDraft {
		if err := m.removeCopy(id, StatusDraft); err != nil {
			return err
		}
	}
	if inPublished {
		if err := m.removeCopy(id, StatusPublished); err != nil {
			return err
		}
	}
	return nil
}

// List returns one page of the id list for a status, in insertion order,
// together with the total size of that list. A start index beyond the total
// yields an empty page; count is clamped to what remains.
func (m *Manager) List(status Status, start, count int) (map[string]Metadata, int) {
	list := *m.listFor(status)
	total := len(list)
	page := map[string]Metadata{}
	if start < 0 || count < 0 || start >= total {
		return page, total
	}
	end := start + count
	if end > total {
		end = total
	}
	for _, id := range list[start:end] {
		if meta, ok := m.metaFor(status).get(id); ok {
			page[id] = meta
		} else {
			m.log.Warnf("No metadata for %v while listing %v articles", id, status)
		}
	}
	return page, total
}

// removeCopy unlinks one location's file, drops the id from that list, and
// drops the matching metadata entry.
func (m *Manager) removeCopy(id string, status Status) error {
	if err := os.Remove(m.articlePath(id, status)); err != nil && !os.IsNotExist(err) {
		return err
	}
	m.removeFromList(status, id)
	return m.metaFor(status).remove(id)
}

// move relocates the canonical file between locations, preferring an atomic
// rename. List membership changes only after the relocation has succeeded.
// The relocated file gets a fresh update date, the target metadata is rebuilt
// from it, and the origin metadata entry is dropped.
func (m *Manager) move(id string, origin, target Status) error {
	if err := iox.MoveFile(m.articlePath(id, origin), m.articlePath(id, target)); err != nil {
		return err
	}
	m.removeFromList(origin, id)
	if !m.inList(target, id) {
		list := m.listFor(target)
		*list = append(*list, id)
	}
	if a, err := m.readArticle(id, target); err != nil {
		m.log.Warnf("Failed to read article %v to refresh its date after move: %v", id, err)
	} else {
		a.UpdateDate = time.Now().UTC()
		if err := m.saveArticle(id, a, target); err != nil {
			m.log.Warnf("Failed to refresh article %v after move: %v", id, err)
		}
		if err := m.metaFor(target).set(id, a); err != nil {
			m.log.Warnf("Failed to rebuild %v metadata of %v: %v", target, id, err)
		}
	}
	return m.metaFor(origin).remove(id)
}
