package flashcards

import "context"

type contextKey string

const cardCtxKey contextKey = "flashcard"

func SetCardInContext(ctx context.Context, card *Flashcard) context.Context {
	return context.WithValue(ctx, cardCtxKey, card)
}

func GetCardFromContext(ctx context.Context) *Flashcard {
	card, _ := ctx.Value(cardCtxKey).(*Flashcard)
	return card
}
