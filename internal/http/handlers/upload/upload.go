// Package upload реализует HTTP-обработчик загрузки вложений.
//
// Файл сохраняется в локальное хранилище под program/requestID/роль
// загрузившего и возвращается ссылка, которую клиент прикладывает
// к заявке или результату проверки.
package upload

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/rasbandhu/evaluation-service/internal/http/middlewarectx"
	"github.com/rasbandhu/evaluation-service/internal/http/response"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Ограничение размера одной загрузки.
const maxUploadSize = 25 << 20

// Store описывает интерфейс файлового хранилища.
type Store interface {
	Save(program, requestID, role, filename string, src io.Reader) (models.FileRef, error)
}

// Handler обрабатывает загрузку вложений.
type Handler struct {
	log   *slog.Logger
	store Store
}

// New создает новый Handler с переданными логгером и хранилищем.
func New(log *slog.Logger, store Store) *Handler {
	return &Handler{
		log:   log,
		store: store,
	}
}

// ServeHTTP godoc
// @Summary Загрузить вложение
// @Description Принимает multipart-файл и возвращает публичную ссылку на него
// @Tags Uploads
// @Accept  mpfd
// @Produce  json
// @Param program formData string true "Программа: dailyEvaluation или testEvaluation"
// @Param request_id formData string false "Группировка файлов одной заявки"
// @Param file formData file true "Файл"
// @Success 200 {object} map[string]any "Ссылка на файл"
// @Failure 400 {object} response.ErrorResponse "Некорректная форма"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /uploads [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.upload"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	role, _ := r.Context().Value(middlewarectx.Role).(string)
	if role == "" {
		log.Error("role not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		log.Error("failed to parse multipart form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid multipart form"))
		return
	}

	program := r.FormValue("program")
	if program != models.ProgramDaily && program != models.ProgramTest {
		log.Error("unknown program in form", slog.String("program", program))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown program"))
		return
	}

	requestID := r.FormValue("request_id")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		log.Error("missing file in form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing file"))
		return
	}
	defer func() {
		_ = file.Close()
	}()

	ref, err := h.store.Save(program, requestID, role, header.Filename, file)
	if err != nil {
		log.Error("failed to store file", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not store file"))
		return
	}

	log.Info("file stored", slog.String("name", ref.Name), slog.String("url", ref.URL))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"file":       ref,
		"request_id": requestID,
	}))
}
