package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// ChatInfo информация о чате в ответе API
type ChatInfo struct {
	ID int64 `json:"id"`
}

// SendMediaResult результат отправки медиа
type SendMediaResult struct {
	MessageID int64    `json:"message_id"`
	Chat      ChatInfo `json:"chat"`
	Date      int64    `json:"date"`
}

// SendMediaResponse ответ от Telegram API на sendPhoto/sendVideo/sendAnimation
type SendMediaResponse struct {
	APIResponse
	Result SendMediaResult `json:"result"`
}

// SendPhoto отправляет фото в чат
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error {
	return c.sendMedia(ctx, "sendPhoto", "photo", chatID, photo, "photo.jpg", caption)
}

// SendVideo отправляет видео в чат
func (c *Client) SendVideo(ctx context.Context, chatID int64, video []byte, caption string) error {
	return c.sendMedia(ctx, "sendVideo", "video", chatID, video, "video.mp4", caption)
}

// SendAnimation отправляет гифку в чат
func (c *Client) SendAnimation(ctx context.Context, chatID int64, animation []byte, caption string) error {
	return c.sendMedia(ctx, "sendAnimation", "animation", chatID, animation, "animation.gif", caption)
}

// sendMedia отправляет файл в чат через multipart/form-data
func (c *Client) sendMedia(ctx context.Context, method, field string, chatID int64, data []byte, filename, caption string) error {
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	if err := writer.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return fmt.Errorf("failed to write chat_id: %w", err)
	}

	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("failed to write caption: %w", err)
		}
		if err := writer.WriteField("parse_mode", "HTML"); err != nil {
			return fmt.Errorf("failed to write parse_mode: %w", err)
		}
	}

	mediaPart, err := writer.CreateFormFile(field, filename)
	if err != nil {
		c.log.Error("failed to create media form file",
			"error", err,
			"method", method,
			"filename", filename,
		)
		return fmt.Errorf("failed to create media form file: %w", err)
	}

	if _, err := mediaPart.Write(data); err != nil {
		return fmt.Errorf("failed to write media data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := c.baseURL + "/" + method
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &requestBody)
	if err != nil {
		return fmt.Errorf("telegram create request failed [chat_id=%d]: %w", chatID, err)
	}

	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	c.log.Debug("sending media to Telegram",
		"chat_id", chatID,
		"method", method,
		"media_size", len(data),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("telegram request failed [chat_id=%d]: %w", chatID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram read response failed [chat_id=%d, status=%d]: %w",
			chatID, resp.StatusCode, err)
	}

	var apiResp SendMediaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		c.log.Error("failed to unmarshal media response",
			"error", err,
			"chat_id", chatID,
			"method", method,
			"status_code", resp.StatusCode,
			"body_preview", truncateString(string(body), 200),
		)
		return fmt.Errorf("telegram unmarshal failed [chat_id=%d, status=%d]: %w",
			chatID, resp.StatusCode, err)
	}

	if !apiResp.OK {
		c.log.Error("telegram API error",
			"error_code", apiResp.ErrorCode,
			"description", apiResp.Description,
			"chat_id", chatID,
			"method", method,
			"status_code", resp.StatusCode,
		)
		return fmt.Errorf("telegram API error [code=%d, chat_id=%d]: %s",
			apiResp.ErrorCode, chatID, apiResp.Description)
	}

	c.log.Debug("media sent successfully",
		"chat_id", chatID,
		"method", method,
		"message_id", apiResp.Result.MessageID,
	)

	return nil
}
