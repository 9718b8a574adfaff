package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"

	"linuxos/internal/pkg/metrics"
	"linuxos/internal/pkg/storage"
)

// FieldAttachment is the form field uploads are validated under.
const FieldAttachment = "attachment"

const (
	tempDir      = "attachment/temp"
	permanentDir = "attachment"
)

// Service implements the upload session workflow: temporary uploads scoped by a
// session token, quota enforcement and promotion to permanent attachments.
type Service struct {
	repo  Repository
	files storage.Storage
	quota Quota
	// sessionType is the content type of UploadSession, the owner of
	// temporary attachments until they are promoted.
	sessionType int64
	now         func() time.Time
}

func NewService(repo Repository, files storage.Storage, quota Quota, sessionType int64) *Service {
	return &Service{
		repo:        repo,
		files:       files,
		quota:       quota,
		sessionType: sessionType,
		now:         time.Now,
	}
}

func (s *Service) Files() storage.Storage { return s.files }

func (s *Service) Quota() Quota { return s.quota }

// CreateSession starts a new upload session with a fresh random token.
// A token collision surfaces as a database error and is not retried.
func (s *Service) CreateSession(ctx context.Context) (*UploadSession, error) {
	session := &UploadSession{UUID: newSessionToken(), CreatedAt: s.now()}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create upload session: %w", err)
	}
	return session, nil
}

func (s *Service) GetSession(ctx context.Context, token string) (*UploadSession, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrSessionNotFound
	}
	return s.repo.GetSessionByUUID(ctx, token)
}

// Attach validates an upload against the quota of its target content type and
// stores it in the session. Nothing is persisted when validation fails.
func (s *Service) Attach(ctx context.Context, session *UploadSession, up Upload, target int64) (*TemporaryAttachment, error) {
	if session == nil || session.ID == 0 {
		return nil, ErrSessionNotFound
	}
	if target <= 0 {
		return nil, ErrUnknownContentType
	}

	consumed, err := s.consumed(ctx, session.ID, 0)
	if err != nil {
		return nil, err
	}
	if err := s.quota.Check(FieldAttachment, target, up.Size(), consumed); err != nil {
		metrics.AttachmentsRejected.WithLabelValues("quota").Inc()
		return nil, err
	}

	stored, err := s.store(ctx, uploadName(path.Join(tempDir, session.UUID), up), up)
	if err != nil {
		return nil, err
	}

	rec := &TemporaryAttachment{
		SessionID:           session.ID,
		TargetContentTypeID: target,
		StoredFile: StoredFile{
			ContentTypeID: s.sessionType,
			ObjectID:      session.ID,
			OriginalName:  up.Filename(),
			Path:          stored,
			Size:          up.Size(),
		},
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateTemporary(ctx, rec); err != nil {
		s.rollbackFile(stored)
		return nil, fmt.Errorf("save temporary attachment: %w", err)
	}

	metrics.AttachmentsUploaded.Inc()
	return rec, nil
}

// ListTemporary returns the session's uploads ordered by id.
func (s *Service) ListTemporary(ctx context.Context, session *UploadSession) ([]TemporaryAttachment, error) {
	if session == nil || session.ID == 0 {
		return nil, ErrSessionNotFound
	}
	return s.repo.ListTemporaryBySession(ctx, session.ID)
}

// GetTemporary returns an upload only if it belongs to session.
func (s *Service) GetTemporary(ctx context.Context, session *UploadSession, id int64) (*TemporaryAttachment, error) {
	if session == nil || session.ID == 0 {
		return nil, ErrSessionNotFound
	}
	a, err := s.repo.GetTemporary(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.SessionID != session.ID {
		return nil, ErrAttachmentNotFound
	}
	return a, nil
}

// DeleteTemporary removes the stored file and then the record. If the file
// cannot be removed the record stays so that a retry can find it.
func (s *Service) DeleteTemporary(ctx context.Context, a *TemporaryAttachment) error {
	if err := s.removeFile(a.Path); err != nil {
		return err
	}
	return s.repo.DeleteTemporary(ctx, a.ID)
}

// ReplaceFile stores a new file for a temporary attachment. The new file is
// written and the record switched to it before the previous file is removed,
// so the record never references a missing or second file.
func (s *Service) ReplaceFile(ctx context.Context, a *TemporaryAttachment, up Upload) (*TemporaryAttachment, error) {
	if a.Path == "" {
		return nil, ErrAttachmentNotFound
	}

	consumed, err := s.consumed(ctx, a.SessionID, a.ID)
	if err != nil {
		return nil, err
	}
	if err := s.quota.Check(FieldAttachment, a.TargetContentTypeID, up.Size(), consumed); err != nil {
		metrics.AttachmentsRejected.WithLabelValues("quota").Inc()
		return nil, err
	}

	stored, err := s.store(ctx, uploadName(sessionDir(a.Path), up), up)
	if err != nil {
		return nil, err
	}

	previous := a.Path
	updated := *a
	updated.Path = stored
	updated.OriginalName = up.Filename()
	updated.Size = up.Size()
	if err := s.repo.UpdateTemporaryFile(ctx, &updated); err != nil {
		s.rollbackFile(stored)
		return nil, fmt.Errorf("update temporary attachment: %w", err)
	}
	*a = updated

	if err := s.removeFile(previous); err != nil {
		return a, err
	}
	return a, nil
}

// Discard deletes every upload of the session (file and record) and then the
// session itself. Files that are already gone do not stop the cleanup.
func (s *Service) Discard(ctx context.Context, session *UploadSession) error {
	if session == nil || session.ID == 0 {
		return ErrSessionNotFound
	}

	list, err := s.repo.ListTemporaryBySession(ctx, session.ID)
	if err != nil {
		return err
	}
	for i := range list {
		if err := s.DeleteTemporary(ctx, &list[i]); err != nil {
			return fmt.Errorf("discard session %s: %w", session.UUID, err)
		}
	}

	if err := s.repo.DeleteSession(ctx, session.ID); err != nil {
		return err
	}
	metrics.UploadSessionsDiscarded.Inc()
	return nil
}

// Promote moves every upload of the session that is not listed in remove to
// owner, deletes the removed ones and finally the session. Records change in
// one transaction: either every eligible upload is promoted or none is.
func (s *Service) Promote(ctx context.Context, session *UploadSession, owner Owner, remove []int64) ([]Attachment, error) {
	if !owner.persisted() {
		return nil, ErrOwnerNotPersisted
	}
	if session == nil || session.ID == 0 {
		return nil, ErrSessionNotFound
	}

	list, err := s.repo.ListTemporaryBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	removed := make(map[int64]bool, len(remove))
	for _, id := range remove {
		removed[id] = true
	}

	// Files of removed uploads go first; their records are deleted in the
	// transaction below, so a failure here leaves everything retryable.
	// If the transaction fails these records outlive their files until a retry.
	for _, a := range list {
		if removed[a.ID] {
			if err := s.removeFile(a.Path); err != nil {
				return nil, err
			}
		}
	}

	var promoted []Attachment
	err = s.repo.Transaction(ctx, func(repo Repository) error {
		promoted = promoted[:0]
		for i := range list {
			temp := &list[i]
			if removed[temp.ID] {
				if err := repo.DeleteTemporary(ctx, temp.ID); err != nil {
					return err
				}
				continue
			}

			file := temp.release()
			file.ContentTypeID = owner.ContentTypeID
			file.ObjectID = owner.ObjectID
			att := Attachment{StoredFile: file, CreatedAt: s.now()}
			if err := repo.CreateAttachment(ctx, &att); err != nil {
				return err
			}
			if err := repo.DeleteTemporary(ctx, temp.ID); err != nil {
				return err
			}
			promoted = append(promoted, att)
		}
		return repo.DeleteSession(ctx, session.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("promote session %s: %w", session.UUID, err)
	}

	metrics.AttachmentsPromoted.Add(float64(len(promoted)))
	return promoted, nil
}

// AddAttachment stores a file directly under a persisted owner, bypassing upload sessions.
func (s *Service) AddAttachment(ctx context.Context, owner Owner, up Upload) (*Attachment, error) {
	if !owner.persisted() {
		return nil, ErrOwnerNotPersisted
	}
	if err := s.quota.Check(FieldAttachment, owner.ContentTypeID, up.Size(), 0); err != nil {
		metrics.AttachmentsRejected.WithLabelValues("quota").Inc()
		return nil, err
	}

	name := path.Join(permanentDir,
		strconv.FormatInt(owner.ContentTypeID, 10),
		strconv.FormatInt(owner.ObjectID, 10),
		storage.SanitizeFilename(up.Filename()))
	stored, err := s.store(ctx, name, up)
	if err != nil {
		return nil, err
	}

	att := &Attachment{
		StoredFile: StoredFile{
			ContentTypeID: owner.ContentTypeID,
			ObjectID:      owner.ObjectID,
			OriginalName:  up.Filename(),
			Path:          stored,
			Size:          up.Size(),
		},
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateAttachment(ctx, att); err != nil {
		s.rollbackFile(stored)
		return nil, fmt.Errorf("save attachment: %w", err)
	}
	return att, nil
}

func (s *Service) ListAttachments(ctx context.Context, owner Owner) ([]Attachment, error) {
	return s.repo.ListAttachmentsByOwner(ctx, owner)
}

func (s *Service) GetAttachment(ctx context.Context, id int64) (*Attachment, error) {
	return s.repo.GetAttachment(ctx, id)
}

// OpenAttachment returns the record and a reader over its file; the caller closes the reader.
func (s *Service) OpenAttachment(ctx context.Context, id int64) (*Attachment, io.ReadCloser, error) {
	a, err := s.repo.GetAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(a.Path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("attachment_file_missing id=%d path=%s", a.ID, a.Path)
		return nil, nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, nil, storageError("open", a.Path, err)
	}
	return a, rc, nil
}

// DeleteAttachment removes a permanent attachment's file and then its record.
func (s *Service) DeleteAttachment(ctx context.Context, id int64) error {
	a, err := s.repo.GetAttachment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.removeFile(a.Path); err != nil {
		return err
	}
	return s.repo.DeleteAttachment(ctx, a.ID)
}

// CleanupExpiredSessions discards sessions created more than maxAge ago and
// reports how many were removed.
func (s *Service) CleanupExpiredSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	sessions, err := s.repo.ListSessionsCreatedBefore(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	discarded := 0
	for i := range sessions {
		if err := s.Discard(ctx, &sessions[i]); err != nil {
			log.Printf("upload_session_cleanup_failed uuid=%s error=%v", sessions[i].UUID, err)
			continue
		}
		discarded++
	}
	return discarded, nil
}

func (s *Service) store(ctx context.Context, name string, up Upload) (string, error) {
	rc, err := up.Open()
	if err != nil {
		return "", storageError("open upload", up.Filename(), err)
	}
	defer rc.Close()

	stored, err := s.files.Save(ctx, name, rc)
	if err != nil {
		return "", storageError("save", name, err)
	}
	return stored, nil
}

// uploadName places each temporary upload in its own slot below dir so that
// the sanitized file name is kept even when the session already holds it.
func uploadName(dir string, up Upload) string {
	return path.Join(dir, uuid.NewString()[:8], storage.SanitizeFilename(up.Filename()))
}

// sessionDir is the session directory of a temporary upload stored as
// <session dir>/<slot>/<name>.
func sessionDir(name string) string {
	return path.Dir(path.Dir(name))
}

// removeFile deletes a stored file, treating an already missing file as removed.
func (s *Service) removeFile(name string) error {
	if name == "" {
		return nil
	}
	exists, err := s.files.Exists(name)
	if err != nil {
		return storageError("stat", name, err)
	}
	if !exists {
		log.Printf("attachment_file_missing path=%s action=delete", name)
		return nil
	}
	if err := s.files.Delete(name); err != nil {
		return storageError("delete", name, err)
	}
	return nil
}

func (s *Service) rollbackFile(name string) {
	if err := s.files.Delete(name); err != nil {
		log.Printf("attachment_rollback_failed path=%s error=%v", name, err)
	}
}

// consumed sums the sizes already stored in a session, excluding one upload.
func (s *Service) consumed(ctx context.Context, sessionID, exclude int64) (int64, error) {
	list, err := s.repo.ListTemporaryBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, a := range list {
		if a.ID != exclude {
			total += a.Size
		}
	}
	return total, nil
}
