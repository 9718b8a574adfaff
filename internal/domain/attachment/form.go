package attachment

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

const (
	FieldUploadSession    = "upload_session"
	FieldDeleteAttachment = "delete_attachment"
)

// FormData is the attachment part of a submitted form.
type FormData struct {
	SessionToken string
	Files        []Upload
	// Delete lists temporary attachment ids the user marked for removal.
	Delete []int64
}

// ParseFormData reads the attachment fields of a parsed multipart request.
// Malformed delete ids are ignored.
func ParseFormData(form *multipart.Form) FormData {
	var data FormData
	if form == nil {
		return data
	}
	if v := form.Value[FieldUploadSession]; len(v) > 0 {
		data.SessionToken = strings.TrimSpace(v[0])
	}
	for _, raw := range form.Value[FieldDeleteAttachment] {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err == nil && id > 0 {
			data.Delete = append(data.Delete, id)
		}
	}
	for _, h := range form.File[FieldAttachment] {
		data.Files = append(data.Files, FromFileHeader(h))
	}
	return data
}

// ParseRequest parses a multipart request body into FormData.
func ParseRequest(r *http.Request, maxMemory int64) (FormData, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return FormData{}, err
	}
	if r.MultipartForm != nil {
		return ParseFormData(r.MultipartForm), nil
	}
	return ParseFormData(&multipart.Form{Value: r.Form}), nil
}

// Form binds a submitted form to an upload session. Uploaded files are kept
// across re-renders of an invalid form and moved to the saved record at the end.
type Form struct {
	svc    *Service
	target int64
	data   FormData

	session *UploadSession
	errors  map[string]string
}

// NewForm prepares attachment handling for records of the target content type.
func (s *Service) NewForm(target int64, data FormData) *Form {
	return &Form{svc: s, target: target, data: data, errors: map[string]string{}}
}

// ProcessAttachments resolves the session (creating one for a missing or stale
// token), deletes uploads marked for removal and stores new files. Quota
// violations are recorded as field errors; other failures are returned.
func (f *Form) ProcessAttachments(ctx context.Context) error {
	session, err := f.svc.GetSession(ctx, f.data.SessionToken)
	if errors.Is(err, ErrSessionNotFound) {
		session, err = f.svc.CreateSession(ctx)
	}
	if err != nil {
		return err
	}
	f.session = session

	for _, id := range f.data.Delete {
		a, err := f.svc.GetTemporary(ctx, session, id)
		if errors.Is(err, ErrAttachmentNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := f.svc.DeleteTemporary(ctx, a); err != nil {
			return err
		}
	}

	for _, up := range f.data.Files {
		_, err := f.svc.Attach(ctx, session, up, f.target)
		var verr *ValidationError
		if errors.As(err, &verr) {
			f.errors[verr.Field] = verr.Error()
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *Form) IsValid() bool { return len(f.errors) == 0 }

// Errors returns field errors keyed by form field name.
func (f *Form) Errors() map[string]string { return f.errors }

// SessionToken is the token to render into the form so a resubmission keeps its uploads.
func (f *Form) SessionToken() string {
	if f.session == nil {
		return ""
	}
	return f.session.UUID
}

// GetAttachments lists the uploads currently held by the form's session.
func (f *Form) GetAttachments(ctx context.Context) ([]TemporaryAttachment, error) {
	if f.session == nil {
		return nil, nil
	}
	return f.svc.ListTemporary(ctx, f.session)
}

// MoveAttachments promotes the session's uploads to a saved record.
func (f *Form) MoveAttachments(ctx context.Context, owner Owner) ([]Attachment, error) {
	if f.session == nil {
		return nil, ErrSessionNotFound
	}
	promoted, err := f.svc.Promote(ctx, f.session, owner, f.data.Delete)
	if err != nil {
		return nil, err
	}
	f.session = nil
	return promoted, nil
}
