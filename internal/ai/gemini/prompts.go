package gemini

const identifyPrompt = `You are looking at frames sampled from a product video.
List every distinct physical product that is clearly shown.
Merge repeated sightings of the same item into one entry.
Respond with a JSON array only, where each element is an object with:
  "name": a short, specific product name
  "description": one sentence describing its appearance
Example: [{"name": "Wireless Earbuds", "description": "White earbuds in a round charging case"}]`

// bestFramePrompt takes the product name and the number of frames.
const bestFramePrompt = `Pick the single frame that shows the %s most clearly:
in focus, unobstructed, well lit and as large as possible in the shot.
There are %d frames, each preceded by a "--- Frame i ---" marker.
Respond with JSON only: {"best_frame_index": <index>, "reason": "<short reason>"}`

// segmentPrompt takes the product name.
const segmentPrompt = `Give the segmentation masks for the %s.
Output a JSON list of segmentation masks where each entry contains the 2D
bounding box in the key "box_2d", the segmentation mask in key "mask", and
the text label in the key "label". Use descriptive labels.`

// enhancePrompt takes the product name and the background style.
const enhancePrompt = `Create a professional product photograph of this %s.
Keep the product exactly as it appears: same shape, colors, materials and details.
Place it on %s.
Use studio lighting with soft, natural shadows and a sharp focus on the product.
The result should look like a high-end e-commerce catalog photo.`
