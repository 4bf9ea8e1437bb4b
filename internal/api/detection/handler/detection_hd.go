package detectionHandler

import (
	"FaceGate/internal/api/detection"
	detectionService "FaceGate/internal/api/detection/service"
	"FaceGate/internal/entity"
	contextPkg "FaceGate/pkg/context"
	"FaceGate/pkg/handlerUtil"
	"FaceGate/pkg/log"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
)

func (h *DetectionHandler) CreateSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	id, err := h.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrInternalServerError, ctx.Path(), "generate_session_id")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusCreated, detection.CreateSessionResponse{ID: id})
}

func (h *DetectionHandler) DetectFace(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	var req detection.DetectFaceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrBadRequest, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	frame, err := req.ToFrame()
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "decode_frame")
	}

	result := h.detectionService.DetectFace(contextPkg.FromFiberCtx(ctx), detectionService.DetectFaceInput{
		ID:      req.ID,
		Command: req.Command,
		Frame:   frame,
	})

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}

func (h *DetectionHandler) ListSessions(ctx *fiber.Ctx) error {
	return handlerUtil.New(h.log).HandleSuccess(ctx, fiber.StatusOK, detection.SessionsResponse{
		Sessions: h.detectionService.Sessions(),
	})
}

func (h *DetectionHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")
	result, ok := h.detectionService.Result(id)
	if !ok {
		return errHandler.Handle(ctx, requestID, detection.ErrSessionNotFound, ctx.Path(), "get_session")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.SessionResultResponse{ID: id, Result: result})
}

func (h *DetectionHandler) CloseSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	result := h.detectionService.Close(contextPkg.FromFiberCtx(ctx), id)

	h.log.WithFields(log.Fields{
		"request_id": h.middleware.GetRequestID(ctx),
		"session_id": id,
	}).Debug("Face detection session close requested")

	return handlerUtil.New(h.log).HandleSuccess(ctx, fiber.StatusOK, detection.SessionResultResponse{ID: id, Result: result})
}

// handleWebSocket streams frames of one session. Binary messages are raw frames sent
// as start; text messages carry a JSON detect request. Every message is answered with
// the current result and the session is closed when the client goes away.
func (h *DetectionHandler) handleWebSocket(c *websocket.Conn) {
	id := c.Query("id")
	if id == "" {
		id, _ = h.utils.NewULIDFromTimestamp(time.Now())
	}
	rotation, _ := c.Locals("rotation").(int)

	fields := log.Fields{"session_id": id}
	h.log.WithFields(fields).Info("Face detection WebSocket client connected")
	defer h.log.WithFields(fields).Info("Face detection WebSocket client disconnected")

	ctx := contextPkg.WithRequestID(context.Background(), id)
	defer h.detectionService.Close(ctx, id)

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithFields(fields).Errorf("Face WebSocket error: %v", err)
			}
			break
		}

		var input detectionService.DetectFaceInput
		switch messageType {
		case websocket.BinaryMessage:
			input = detectionService.DetectFaceInput{
				ID:      id,
				Command: string(entity.CommandStart),
				Frame:   entity.Frame{Data: message, Rotation: rotation},
			}
		case websocket.TextMessage:
			input, err = h.parseTextMessage(id, message)
			if err != nil {
				if writeErr := h.writeJSON(c, fiber.Map{"error": err.Error()}); writeErr != nil {
					h.log.Errorf("Error sending error response: %v", writeErr)
					return
				}
				continue
			}
		default:
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		result := h.detectionService.DetectFace(ctx, input)
		if err := h.writeJSON(c, result); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}

func (h *DetectionHandler) parseTextMessage(id string, message []byte) (detectionService.DetectFaceInput, error) {
	var req detection.DetectFaceRequest
	if err := jsoniter.Unmarshal(message, &req); err != nil {
		return detectionService.DetectFaceInput{}, detection.ErrBadRequest
	}
	// a stream only ever drives its own session
	req.ID = id

	if err := h.validator.Struct(req); err != nil {
		return detectionService.DetectFaceInput{}, err
	}

	frame, err := req.ToFrame()
	if err != nil {
		return detectionService.DetectFaceInput{}, err
	}

	return detectionService.DetectFaceInput{ID: id, Command: req.Command, Frame: frame}, nil
}

func (h *DetectionHandler) writeJSON(c *websocket.Conn, v interface{}) error {
	payload, err := jsoniter.Marshal(v)
	if err != nil {
		return err
	}

	if err := c.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return err
	}
	if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	return c.SetWriteDeadline(time.Time{})
}
