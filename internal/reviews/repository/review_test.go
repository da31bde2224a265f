package repository

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestSummaryPipeline(t *testing.T) {
	p := summaryPipeline("a1")
	if len(p) != 2 {
		t.Fatalf("stages = %d", len(p))
	}

	match := p[0][0]
	if match.Key != "$match" || match.Value.(bson.M)["apartment_id"] != "a1" {
		t.Errorf("match stage = %+v", match)
	}

	group := p[1][0].Value.(bson.M)
	if group["_id"] != "$apartment_id" {
		t.Errorf("group key = %v", group["_id"])
	}
	if avg := group["average_rating"].(bson.M); avg["$avg"] != "$rating" {
		t.Errorf("average = %v", avg)
	}
}
