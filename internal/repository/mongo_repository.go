package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDocument struct {
	UserID      string               `bson:"user_id"`
	Items       []itemDocument       `bson:"items"`
	TotalAmount primitive.Decimal128 `bson:"total_amount"`
	Currency    string               `bson:"currency"`
	Version     int64                `bson:"version"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

type itemDocument struct {
	ProductID   string               `bson:"product_id"`
	ProductName string               `bson:"product_name"`
	Price       primitive.Decimal128 `bson:"price"`
	Quantity    int                  `bson:"quantity"`
}

type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
		now:        time.Now,
	}
}

func (m *MongoRepository) FindByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	var doc cartDocument

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return fromDocument(doc)
}

func (m *MongoRepository) Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	saved := cart.Clone()
	now := m.now().UTC().Truncate(time.Millisecond)
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	saved.Version = cart.Version + 1

	doc, err := toDocument(saved)
	if err != nil {
		return nil, err
	}

	if cart.Version == 0 {
		_, err = m.collection.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrCartConflict
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert cart: %w", err)
		}
		return saved, nil
	}

	filter := bson.M{"user_id": cart.UserID, "version": cart.Version}
	update := bson.M{"$set": doc}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, domain.ErrCartConflict
	}

	return saved, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.collection.Database().Client().Ping(ctx, nil)
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func toDocument(c *domain.Cart) (cartDocument, error) {
	total, err := toDecimal128(c.TotalAmount)
	if err != nil {
		return cartDocument{}, err
	}

	doc := cartDocument{
		UserID:      c.UserID,
		Items:       make([]itemDocument, len(c.Items)),
		TotalAmount: total,
		Currency:    c.Currency,
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for i, item := range c.Items {
		price, err := toDecimal128(item.Price)
		if err != nil {
			return cartDocument{}, err
		}
		doc.Items[i] = itemDocument{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       price,
			Quantity:    item.Quantity,
		}
	}
	return doc, nil
}

func fromDocument(doc cartDocument) (*domain.Cart, error) {
	total, err := decimal.NewFromString(doc.TotalAmount.String())
	if err != nil {
		return nil, fmt.Errorf("invalid total_amount %q: %w", doc.TotalAmount.String(), err)
	}

	cart := &domain.Cart{
		UserID:      doc.UserID,
		Items:       make([]domain.CartItem, len(doc.Items)),
		TotalAmount: total,
		Currency:    doc.Currency,
		Version:     doc.Version,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for i, item := range doc.Items {
		price, err := decimal.NewFromString(item.Price.String())
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", item.Price.String(), err)
		}
		cart.Items[i] = domain.CartItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       price,
			Quantity:    item.Quantity,
		}
	}
	return cart, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("invalid decimal %s: %w", d.String(), err)
	}
	return v, nil
}
