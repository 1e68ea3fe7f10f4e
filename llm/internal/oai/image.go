package oai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/qiangli/lm/api"
)

var imageQualities = map[string]openai.ImageGenerateParamsQuality{
	"standard": openai.ImageGenerateParamsQualityStandard,
	"hd":       openai.ImageGenerateParamsQualityHD,
	"low":      openai.ImageGenerateParamsQualityLow,
	"medium":   openai.ImageGenerateParamsQualityMedium,
	"high":     openai.ImageGenerateParamsQualityHigh,
	"auto":     openai.ImageGenerateParamsQualityAuto,
}

var imageSizes = map[string]openai.ImageGenerateParamsSize{
	"256x256":   openai.ImageGenerateParamsSize256x256,
	"512x512":   openai.ImageGenerateParamsSize512x512,
	"1024x1024": openai.ImageGenerateParamsSize1024x1024,
	"1792x1024": openai.ImageGenerateParamsSize1792x1024,
	"1024x1792": openai.ImageGenerateParamsSize1024x1792,
	"1536x1024": openai.ImageGenerateParamsSize1536x1024,
	"1024x1536": openai.ImageGenerateParamsSize1024x1536,
	"auto":      openai.ImageGenerateParamsSizeAuto,
}

var imageStyles = map[string]openai.ImageGenerateParamsStyle{
	"vivid":   openai.ImageGenerateParamsStyleVivid,
	"natural": openai.ImageGenerateParamsStyleNatural,
}

var imageFormats = map[string]openai.ImageGenerateParamsResponseFormat{
	"url":      openai.ImageGenerateParamsResponseFormatURL,
	"b64_json": openai.ImageGenerateParamsResponseFormatB64JSON,
}

// ImageOptions name image settings as plain strings.
// Empty values fall back to standard, 1024x1024, natural and url.
type ImageOptions struct {
	Model          string
	Size           string
	Quality        string
	Style          string
	ResponseFormat string
	User           string
}

func (r *ImageOptions) Validate() error {
	if _, err := lookup("image_quality", imageQualities, r.Quality, "standard"); err != nil {
		return err
	}
	if _, err := lookup("image_size", imageSizes, r.Size, "1024x1024"); err != nil {
		return err
	}
	if _, err := lookup("image_style", imageStyles, r.Style, "natural"); err != nil {
		return err
	}
	if _, err := lookup("image_response_format", imageFormats, r.ResponseFormat, "url"); err != nil {
		return err
	}
	return nil
}

func (r *ImageOptions) Params(prompt string) (openai.ImageGenerateParams, error) {
	if err := r.Validate(); err != nil {
		return openai.ImageGenerateParams{}, err
	}
	quality, _ := lookup("image_quality", imageQualities, r.Quality, "standard")
	size, _ := lookup("image_size", imageSizes, r.Size, "1024x1024")
	style, _ := lookup("image_style", imageStyles, r.Style, "natural")
	format, _ := lookup("image_response_format", imageFormats, r.ResponseFormat, "url")

	params := openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(r.Model),
		N:              openai.Int(1),
		Quality:        quality,
		Size:           size,
		Style:          style,
		ResponseFormat: format,
	}
	if r.User != "" {
		params.User = openai.String(r.User)
	}
	return params, nil
}

func lookup[T any](field string, m map[string]T, key, def string) (T, error) {
	if key == "" {
		key = def
	}
	v, ok := m[key]
	if !ok {
		var zero T
		return zero, api.NewConfigError(field, "unsupported value %q", key)
	}
	return v, nil
}

func GenerateImage(ctx context.Context, client *openai.Client, params openai.ImageGenerateParams) (*api.ImageResponse, error) {
	resp, err := client.Images.Generate(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, api.ErrEmptyResponse
	}

	result := &api.ImageResponse{}
	for _, img := range resp.Data {
		result.Images = append(result.Images, api.Image{
			URL:           img.URL,
			Base64:        img.B64JSON,
			RevisedPrompt: img.RevisedPrompt,
		})
	}
	return result, nil
}

func (r *ImageOptions) String() string {
	return fmt.Sprintf("model=%s size=%s quality=%s style=%s", r.Model, r.Size, r.Quality, r.Style)
}
