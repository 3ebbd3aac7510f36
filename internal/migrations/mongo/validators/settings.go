package validators

import "go.mongodb.org/mongo-driver/bson"

var SettingsValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"timezone",
			"open_time",
			"close_time",
			"max_duration_minutes",
			"slot_minutes",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"timezone": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"open_time": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"close_time": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"blackout_dates": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
					"pattern":  "^[0-9]{4}-[0-9]{2}-[0-9]{2}$",
				},
			},

			"min_notice_minutes":   bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"max_duration_minutes": bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"buffer_minutes":       bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"slot_minutes":         bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
		},
	},
}
