package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cartDocument is the stored shape; prices are kept as decimal strings.
type cartDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    int64              `bson:"user_id"`
	Lines     []lineDocument     `bson:"lines"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type lineDocument struct {
	VariantID int64     `bson:"variant_id"`
	Quantity  int32     `bson:"quantity"`
	UnitPrice string    `bson:"unit_price"`
	AddedAt   time.Time `bson:"added_at"`
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	c := &domain.Cart{
		UserID:    d.UserID,
		Lines:     make([]domain.CartLine, 0, len(d.Lines)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if !d.ID.IsZero() {
		c.ID = d.ID.Hex()
	}
	for _, l := range d.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("cart %d variant %d has malformed price %q: %w", d.UserID, l.VariantID, l.UnitPrice, err)
		}
		c.Lines = append(c.Lines, domain.CartLine{
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: price,
			AddedAt:   l.AddedAt,
		})
	}
	return c, nil
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *mongoRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoRepository) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	var doc cartDocument

	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.toDomain()
}

// AddLine appends a line, or overwrites quantity and price when the variant is already in the cart.
// Existing lines keep their position.
func (m *mongoRepository) AddLine(ctx context.Context, userID int64, line domain.CartLine) error {
	if line.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	for attempt := 1; attempt <= addLineAttempts; attempt++ {
		done, err := m.addLine(ctx, userID, line)
		if err != nil || done {
			return err
		}
	}
	return fmt.Errorf("failed to add line for variant %d: concurrent writers kept conflicting", line.VariantID)
}

const addLineAttempts = 3

// addLine reports false when a concurrent writer created the cart or the line between the two updates.
func (m *mongoRepository) addLine(ctx context.Context, userID int64, line domain.CartLine) (bool, error) {
	now := time.Now().UTC()

	result, err := m.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "lines.variant_id": line.VariantID},
		bson.M{
			"$set": bson.M{
				"lines.$.quantity":   line.Quantity,
				"lines.$.unit_price": line.UnitPrice.String(),
				"updated_at":         now,
			},
		})
	if err != nil {
		return false, fmt.Errorf("failed to update existing line: %w", err)
	}
	if result.MatchedCount > 0 {
		return true, nil
	}

	doc := lineDocument{
		VariantID: line.VariantID,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice.String(),
		AddedAt:   now,
	}
	// the $ne guard keeps a racing push from adding the variant twice; when it fails to
	// match an existing cart the upsert trips the unique user_id index instead
	_, err = m.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "lines.variant_id": bson.M{"$ne": line.VariantID}},
		bson.M{
			"$push":        bson.M{"lines": doc},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to add new line: %w", err)
	}
	return true, nil
}

func (m *mongoRepository) RemoveLine(ctx context.Context, userID int64, variantID int64) error {
	result, err := m.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "lines.variant_id": variantID},
		bson.M{
			"$pull": bson.M{"lines": bson.M{"variant_id": variantID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to remove line: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, userID int64) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
