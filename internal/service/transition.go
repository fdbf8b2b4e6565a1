package service

import (
	"fmt"
	"strings"
)

// Статусы, в которые переводят распознанные действия
const (
	StatusTowEagles    = "Tow Requested: Eagles 24"
	StatusTowOther     = "Tow Requested: Other"
	StatusSceneCleared = "Scene Cleared"
)

// Transition - результат разбора токена действия
type Transition struct {
	// Status - новый статус инцидента
	Status string
	// Terminal - после терминального перехода интерактивные кнопки
	// снимаются с сообщения в группе
	Terminal bool
	// ActorID - идентификатор нажавшего кнопку, используется только
	// в строке аудита
	ActorID string
}

// ResolveTransition - чистая функция отображения токена действия в новый статус.
// Токен имеет вид <verb>_<qualifier>_<actor-id>; на статус влияют только
// verb и qualifier. Нераспознанная комбинация возвращает ErrUnknownAction,
// и вызывающий обязан не менять ни хранилище, ни сообщение в группе.
func ResolveTransition(token string) (Transition, error) {
	parts := strings.SplitN(token, "_", 3)
	if len(parts) != 3 {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownAction, token)
	}
	verb, qualifier, actorID := parts[0], parts[1], parts[2]

	switch {
	case verb == "tow" && qualifier == "eagles":
		return Transition{Status: StatusTowEagles, ActorID: actorID}, nil
	case verb == "tow":
		return Transition{Status: StatusTowOther, ActorID: actorID}, nil
	case verb == "scene" && qualifier == "cleared":
		return Transition{Status: StatusSceneCleared, Terminal: true, ActorID: actorID}, nil
	default:
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownAction, token)
	}
}
