package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestReviewIndexes(t *testing.T) {
	indexes := reviewIndexes()
	require.Len(t, indexes, 3)

	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		require.NotNil(t, idx.Options.Name)
		names = append(names, *idx.Options.Name)
	}
	assert.Equal(t, []string{"gig_id_idx", "seller_id_idx", "order_reviewer_uniq"}, names)
}

func TestReviewIndexes_OrderReviewerSkipsReviewsWithoutOrder(t *testing.T) {
	uniq := reviewIndexes()[2]

	require.NotNil(t, uniq.Options.Unique)
	assert.True(t, *uniq.Options.Unique)
	assert.Equal(t, bson.M{"order_id": bson.M{"$gt": ""}}, uniq.Options.PartialFilterExpression)
}
