// example.go — Starter card and data files for `cardforge init`.
package cardspec

// ExampleJSON returns a sample card.json and data.json.
func ExampleJSON() (cardJSON, dataJSON string) {
	cardJSON = `{
  "meta": {
    "name": "Birthday Card",
    "version": "1.0",
    "author": "cardforge",
    "description": "A photo card with a greeting and a few stickers"
  },
  "canvas": { "preset": "small" },
  "template": "Confetti",
  "textColor": "#ff69b4",
  "font": "Regular",
  "layers": [
    {
      "id": "photo",
      "type": "image",
      "anchor": "top",
      "style": {
        "filter": "sepia",
        "borderRadius": 10,
        "borderWidth": 2,
        "borderColor": "#8b4513"
      },
      "defaults": { "source": "qr:https://example.com/party" }
    },
    {
      "id": "message",
      "type": "text",
      "zIndex": 1,
      "anchor": "center",
      "style": { "fontSize": 24 },
      "defaults": { "text": "Happy Birthday!" }
    },
    {
      "id": "signature",
      "type": "text",
      "zIndex": 1,
      "anchor": "bottom",
      "style": { "fontSize": 14, "color": "#333333", "font": "Dancing" },
      "defaults": { "text": "With love" }
    },
    {
      "id": "balloon",
      "type": "decoration",
      "zIndex": 2,
      "x": 0.15, "y": 0.12,
      "defaults": { "source": "deco:balloon" }
    },
    {
      "id": "cake",
      "type": "decoration",
      "zIndex": 2,
      "x": 0.85, "y": 0.12,
      "defaults": { "source": "deco:cake" }
    }
  ],
  "schema": {
    "description": "Override text, photo and stickers via data.json",
    "layers": {
      "photo": {
        "description": "Photo at the top of the card",
        "fields": {
          "source": "file path, URL, deco:<id> or qr:<text>",
          "style": "filter, rotation, scale, border settings"
        }
      },
      "message": {
        "description": "Main greeting",
        "fields": {
          "visible": "boolean, show/hide",
          "text": "string, greeting text"
        }
      },
      "signature": {
        "description": "Sign-off line",
        "fields": {
          "visible": "boolean",
          "text": "string"
        }
      }
    }
  }
}`

	dataJSON = `{
  "layers": {
    "message": {
      "text": "Happy 30th, Sam!"
    },
    "signature": {
      "text": "From all of us"
    },
    "cake": {
      "visible": false
    }
  }
}`
	return
}
