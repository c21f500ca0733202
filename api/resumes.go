package api

import (
	"io"
	"strings"

	"github.com/adeilh/digitally/auth"
	"github.com/adeilh/digitally/httpx"
	"github.com/adeilh/digitally/resumes"
)

// uploadField is the multipart field carrying the document.
const uploadField = "resume"

// uploadResume accepts a multipart document or a JSON {"text": ...} body.
func (h *Handler) uploadResume(c httpx.Context) error {
	ctx := c.Request().Context()
	owner := auth.UserID(c)
	md := resumes.Metadata{IPAddress: c.RealIP(), UserAgent: c.Request().UserAgent()}

	if strings.HasPrefix(c.Request().Header.Get("Content-Type"), "multipart/") {
		f, err := readUpload(c)
		if err != nil {
			return toHTTP(err)
		}
		f.Metadata = md
		r, err := h.d.Resumes.Upload(ctx, f, owner)
		if err != nil {
			return toHTTP(err)
		}
		return c.JSON(httpx.StatusCreated, r)
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.d.Resumes.UploadText(ctx, req.Text, owner, md)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusCreated, r)
}

func readUpload(c httpx.Context) (resumes.File, error) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		return resumes.File{}, resumes.ErrNoFile
	}
	if fh.Size > resumes.MaxFileSize {
		return resumes.File{}, resumes.ErrFileTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return resumes.File{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, resumes.MaxFileSize+1))
	if err != nil {
		return resumes.File{}, err
	}
	return resumes.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *Handler) listResumes(c httpx.Context) error {
	list, err := h.d.Resumes.List(c.Request().Context(), auth.UserID(c), splitIDs(c.QueryParam("ids")))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusOK, list)
}

func (h *Handler) getResume(c httpx.Context) error {
	r, err := h.d.Resumes.Get(c.Request().Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusOK, r)
}

func (h *Handler) analyzeResume(c httpx.Context) error {
	r, err := h.d.Resumes.Analyze(c.Request().Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(httpx.StatusOK, r)
}
