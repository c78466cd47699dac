package export

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tablewright/tablewright/internal/catalog"
)

// MongoExporter writes tables to a MongoDB database, one collection
// per table, one document per row.
type MongoExporter struct {
	client   *mongo.Client
	database string
}

// NewMongoExporter connects to the given MongoDB instance.
func NewMongoExporter(ctx context.Context, connectionString, database string) (*MongoExporter, error) {
	opts := options.Client().ApplyURI(connectionString)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	return &MongoExporter{client: client, database: database}, nil
}

func (m *MongoExporter) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Export replaces the collection named after the table with the
// table's current rows. It returns the number of documents written.
func (m *MongoExporter) Export(ctx context.Context, cat *catalog.Catalog, tableID int64) (int64, error) {
	t, err := cat.GetTable(ctx, tableID)
	if err != nil {
		return 0, err
	}

	coll := m.client.Database(m.database).Collection(t.Name)
	if err := coll.Drop(ctx); err != nil {
		return 0, fmt.Errorf("dropping collection %s: %w", t.Name, err)
	}

	var written int64
	for offset := 0; ; offset += exportPageSize {
		cols, rows, err := cat.Rows(ctx, tableID, offset, exportPageSize)
		if err != nil {
			return written, err
		}
		if len(rows) > 0 {
			docs := make([]any, len(rows))
			for i, row := range rows {
				doc := bson.M{}
				for j, col := range cols {
					doc[col.Name] = row[j]
				}
				docs[i] = doc
			}
			res, err := coll.InsertMany(ctx, docs)
			if err != nil {
				return written, fmt.Errorf("inserting into %s: %w", t.Name, err)
			}
			written += int64(len(res.InsertedIDs))
		}
		if len(rows) < exportPageSize {
			break
		}
	}
	return written, nil
}
