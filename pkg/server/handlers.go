package server

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/equipviz/equipviz/pkg/contract"
	"github.com/equipviz/equipviz/pkg/entities"
)

// Multipart uploads may name the file field either way.
var fileFields = []string{"csv_file", "file"}

type jsonUpload struct {
	Title    string `json:"title"    validate:"notBlank"`
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content"  validate:"required"`
}

type listQuery struct {
	Limit int `query:"limit" validate:"gte=0"`
}

type handlers struct {
	service contract.DatasetService
	parser  contract.HTTPRequestParser
}

func readFormFile(header *multipart.FileHeader) ([]byte, *contract.Error) {
	file, err := header.Open()
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCode_BAD_REQUEST, "Could not read the uploaded file", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCode_BAD_REQUEST, "Could not read the uploaded file", err)
	}

	return content, nil
}

func formUpload(c *fiber.Ctx) (*entities.UploadRequest, *contract.Error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCode_BAD_REQUEST, "Expected a multipart form upload", err)
	}

	var header *multipart.FileHeader
	for _, field := range fileFields {
		if files := form.File[field]; len(files) > 0 {
			header = files[0]

			break
		}
	}
	if header == nil {
		return nil, contract.NewError(
			contract.ErrorCode_INVALID_PARAMETER_VALUE,
			"Missing value for required parameter 'csv_file'",
		)
	}

	content, cErr := readFormFile(header)
	if cErr != nil {
		return nil, cErr
	}

	var title string
	if values := form.Value["title"]; len(values) > 0 {
		title = values[0]
	}

	return &entities.UploadRequest{
		Title:    title,
		Filename: header.Filename,
		Content:  content,
	}, nil
}

func datasetID(c *fiber.Ctx) (int64, *contract.Error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, contract.NewError(
			contract.ErrorCode_INVALID_PARAMETER_VALUE,
			fmt.Sprintf("Invalid value %s for parameter 'id' supplied", c.Params("id")),
		)
	}

	return int64(id), nil
}

func (h *handlers) upload(c *fiber.Ctx) error {
	input, cErr := formUpload(c)
	if cErr != nil {
		return cErr
	}

	return h.respondUpload(c, input)
}

func (h *handlers) uploadJSON(c *fiber.Ctx) error {
	var body jsonUpload
	if cErr := h.parser.ParseBody(c, &body); cErr != nil {
		return cErr
	}

	return h.respondUpload(c, &entities.UploadRequest{
		Title:    body.Title,
		Filename: body.Filename,
		Content:  []byte(body.Content),
	})
}

func (h *handlers) respondUpload(c *fiber.Ctx, input *entities.UploadRequest) error {
	result, cErr := h.service.Upload(c.Context(), ownerFrom(c), input)
	if cErr != nil {
		return cErr
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *handlers) list(c *fiber.Ctx) error {
	var query listQuery
	if cErr := h.parser.ParseQuery(c, &query); cErr != nil {
		return cErr
	}

	items, cErr := h.service.ListRecent(c.Context(), ownerFrom(c), query.Limit)
	if cErr != nil {
		return cErr
	}

	return c.JSON(items)
}

func (h *handlers) detail(c *fiber.Ctx) error {
	id, cErr := datasetID(c)
	if cErr != nil {
		return cErr
	}

	detail, cErr := h.service.FetchDetail(c.Context(), ownerFrom(c), id)
	if cErr != nil {
		return cErr
	}

	return c.JSON(detail)
}

func (h *handlers) delete(c *fiber.Ctx) error {
	id, cErr := datasetID(c)
	if cErr != nil {
		return cErr
	}

	if cErr := h.service.Delete(c.Context(), ownerFrom(c), id); cErr != nil {
		return cErr
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// registerDatasetRoutes wires the dataset endpoints, including the legacy paths
// older clients still call.
func registerDatasetRoutes(router fiber.Router, service contract.DatasetService, parser contract.HTTPRequestParser) {
	h := &handlers{service: service, parser: parser}

	router.Post("/datasets", h.upload)
	router.Post("/datasets/json", h.uploadJSON)
	router.Get("/datasets", h.list)
	router.Get("/datasets/:id", h.detail)
	router.Delete("/datasets/:id", h.delete)

	router.Post("/upload-csv/", h.upload)
	router.Get("/last5-csv/", h.list)
	router.Get("/csv/:id/", h.detail)
	router.Delete("/delete-csv/:id/", h.delete)
}
