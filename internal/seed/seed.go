// Package seed provides database seeding utilities for development. It fills
// the database with threads and comment trees so the embed and admin views
// have something to show.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"murmur/internal/markdown"
	"murmur/internal/models"
	"murmur/internal/spam"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumThreads        int
	CommentsPerThread int
	ShouldClean       bool
}

var threadPaths = []string{
	"blog/hello-world", "blog/on-writing", "blog/go-generics", "blog/self-hosting",
	"blog/static-sites", "notes/reading-list", "notes/homelab", "projects/murmur",
	"projects/dotfiles", "about",
}

// Seed populates the database with demo threads and comments.
func Seed(db *gorm.DB, opts Options) error {
	if opts.NumThreads <= 0 {
		opts.NumThreads = 5
	}
	if opts.CommentsPerThread <= 0 {
		opts.CommentsPerThread = 8
	}
	log.Printf("seeding %d threads with ~%d comments each", opts.NumThreads, opts.CommentsPerThread)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("warning: could not clear existing data, continuing anyway")
		}
	}

	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < opts.NumThreads; i++ {
		thread, err := createThread(db, i)
		if err != nil {
			return fmt.Errorf("failed to create thread: %w", err)
		}
		if err := createComments(db, r, thread, opts.CommentsPerThread); err != nil {
			return fmt.Errorf("failed to create comments for %s: %w", thread.URI, err)
		}
	}

	log.Printf("seeding complete")
	return nil
}

func createThread(db *gorm.DB, i int) (*models.Thread, error) {
	path := threadPaths[i%len(threadPaths)]
	if i >= len(threadPaths) {
		path = fmt.Sprintf("%s-%d", path, i/len(threadPaths))
	}
	title := gofakeit.Sentence(4)
	url := "https://example.com/" + path
	thread := &models.Thread{
		URI:   models.NormalizeURI(path),
		Title: &title,
		URL:   &url,
	}
	if err := db.Create(thread).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

func createComments(db *gorm.DB, r *rand.Rand, thread *models.Thread, n int) error {
	var topLevel []uint
	for i := 0; i < n; i++ {
		comment := buildComment(r, thread.ID)
		// Roughly a third of comments are replies once parents exist.
		if len(topLevel) > 0 && r.Intn(3) == 0 {
			parent := topLevel[r.Intn(len(topLevel))]
			comment.ParentID = &parent
		}
		if err := db.Create(comment).Error; err != nil {
			return err
		}
		if comment.ParentID == nil {
			topLevel = append(topLevel, comment.ID)
		}
	}
	return nil
}

func buildComment(r *rand.Rand, threadID uint) *models.Comment {
	body := gofakeit.Paragraph(1, 2, 8, "\n\n")
	author := gofakeit.Name()
	email := gofakeit.Email()
	// Stored addresses are always anonymized, seeded ones included.
	ip := spam.AnonymizeIP(gofakeit.IPv4Address())

	status := models.StatusApproved
	switch r.Intn(10) {
	case 0:
		status = models.StatusPending
	case 1:
		status = models.StatusSpam
	}

	comment := &models.Comment{
		ThreadID:     threadID,
		BodyMarkdown: body,
		BodyHTML:     markdown.Render(body),
		Author:       &author,
		Email:        &email,
		RemoteAddr:   &ip,
		Status:       status,
		Upvotes:      r.Intn(12),
		CreatedAt:    time.Now().Add(-time.Duration(r.Intn(90*24)) * time.Hour),
	}
	if r.Intn(4) == 0 {
		website := gofakeit.URL()
		comment.Website = &website
	}
	return comment
}

func clearData(db *gorm.DB) error {
	if err := db.Unscoped().Where("1 = 1").Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return db.Unscoped().Where("1 = 1").Delete(&models.Thread{}).Error
}
