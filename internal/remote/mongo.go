package remote

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"kapesync/internal/model"
)

// DefaultCallTimeout bounds every remote call. A POS terminal on a
// flaky LAN cannot afford the driver's default server selection wait.
const DefaultCallTimeout = 5 * time.Second

var _ Gateway = (*MongoGateway)(nil)

// MongoGateway implements Gateway against a MongoDB database.
type MongoGateway struct {
	db      *mongo.Database
	timeout time.Duration
}

// Dial connects to the backend and returns a gateway over the named
// database. The connect itself is bounded by timeout; so is every
// subsequent call.
func Dial(ctx context.Context, uri, dbName string, timeout time.Duration) (*MongoGateway, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}

	return &MongoGateway{db: client.Database(dbName), timeout: timeout}, nil
}

// Close releases the underlying client.
func (g *MongoGateway) Close(ctx context.Context) error {
	return g.db.Client().Disconnect(ctx)
}

func (g *MongoGateway) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// Ping checks reachability with a bounded primary read.
func (g *MongoGateway) Ping(ctx context.Context) error {
	ctx, cancel := g.bounded(ctx)
	defer cancel()
	if err := g.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// upsert writes doc into coll keyed by the client-generated id filter
// and returns the remote document id. If a prior attempt already
// created the document, the existing one is updated in place and its
// id returned - replay stays idempotent.
func (g *MongoGateway) upsert(ctx context.Context, coll string, filter bson.M, doc any) (string, error) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	res, err := g.db.Collection(coll).ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("upsert %s: %w", coll, err)
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}

	// Document already existed; fetch its _id for the backfill.
	var existing struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := g.db.Collection(coll).FindOne(ctx, filter).Decode(&existing); err != nil {
		return "", fmt.Errorf("upsert %s: resolve id: %w", coll, err)
	}
	return existing.ID.Hex(), nil
}

func (g *MongoGateway) update(ctx context.Context, coll string, filter bson.M, doc any) error {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	res, err := g.db.Collection(coll).ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("update %s: %w", coll, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s: no document matches %v", coll, filter)
	}
	return nil
}

func (g *MongoGateway) delete(ctx context.Context, coll string, filter bson.M) error {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	if _, err := g.db.Collection(coll).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("delete %s: %w", coll, err)
	}
	return nil
}

func (g *MongoGateway) CreateItem(ctx context.Context, it model.CatalogItem) (string, error) {
	return g.upsert(ctx, CollectionItems, bson.M{"id": it.ID}, it)
}

func (g *MongoGateway) UpdateItem(ctx context.Context, it model.CatalogItem) error {
	return g.update(ctx, CollectionItems, bson.M{"id": it.ID}, it)
}

func (g *MongoGateway) DeleteItem(ctx context.Context, id string) error {
	return g.delete(ctx, CollectionItems, bson.M{"id": id})
}

// ActiveItems returns items where status = true, marked remote-origin.
func (g *MongoGateway) ActiveItems(ctx context.Context) ([]model.CatalogItem, error) {
	var items []model.CatalogItem
	if err := g.findAll(ctx, CollectionItems, bson.M{"status": true}, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Origin = model.OriginRemote
	}
	return items, nil
}

func (g *MongoGateway) CreateCategory(ctx context.Context, c model.Category) (string, error) {
	return g.upsert(ctx, CollectionCategories, bson.M{"id": c.ID}, c)
}

func (g *MongoGateway) UpdateCategory(ctx context.Context, c model.Category) error {
	return g.update(ctx, CollectionCategories, bson.M{"id": c.ID}, c)
}

func (g *MongoGateway) DeleteCategory(ctx context.Context, id string) error {
	return g.delete(ctx, CollectionCategories, bson.M{"id": id})
}

func (g *MongoGateway) Categories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := g.findAll(ctx, CollectionCategories, bson.M{}, &cats); err != nil {
		return nil, err
	}
	for i := range cats {
		cats[i].Origin = model.OriginRemote
	}
	return cats, nil
}

func (g *MongoGateway) CreateCup(ctx context.Context, c model.CupType) (string, error) {
	return g.upsert(ctx, CollectionCups, bson.M{"id": c.ID}, c)
}

func (g *MongoGateway) UpdateCup(ctx context.Context, c model.CupType) error {
	return g.update(ctx, CollectionCups, bson.M{"id": c.ID}, c)
}

func (g *MongoGateway) DeleteCup(ctx context.Context, id string) error {
	return g.delete(ctx, CollectionCups, bson.M{"id": id})
}

func (g *MongoGateway) Cups(ctx context.Context) ([]model.CupType, error) {
	var cups []model.CupType
	if err := g.findAll(ctx, CollectionCups, bson.M{}, &cups); err != nil {
		return nil, err
	}
	for i := range cups {
		cups[i].Origin = model.OriginRemote
	}
	return cups, nil
}

// CreateOrder mirrors an order, stripping cancelled lines. Keyed by
// the client-generated orderId: replaying the same order is a no-op
// overwrite, never a duplicate receipt.
func (g *MongoGateway) CreateOrder(ctx context.Context, o model.Order) (string, error) {
	return g.upsert(ctx, CollectionOrders, bson.M{"orderId": o.OrderID}, o.MirrorCopy())
}

func (g *MongoGateway) UpdateOrder(ctx context.Context, o model.Order) error {
	return g.update(ctx, CollectionOrders, bson.M{"orderId": o.OrderID}, o.MirrorCopy())
}

func (g *MongoGateway) OrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}

	ctx, cancel := g.bounded(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := g.db.Collection(CollectionOrders).Find(ctx, bson.M{"status": bson.M{"$in": vals}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", CollectionOrders, err)
	}
	defer cur.Close(ctx)

	var orders []model.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode %s: %w", CollectionOrders, err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

func (g *MongoGateway) findAll(ctx context.Context, coll string, filter bson.M, out any) error {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	cur, err := g.db.Collection(coll).Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("find %s: %w", coll, err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll, err)
	}
	return nil
}
