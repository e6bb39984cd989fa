package render

// In-page scripts. Each is evaluated with promise awaiting.
const (
	waitImagesJS = `Promise.all(
  Array.from(document.images)
    .filter(img => !img.complete)
    .map(img => new Promise(resolve => { img.onload = img.onerror = resolve; }))
).then(() => true)`

	waitFontsJS = `(document.fonts && document.fonts.ready)
  ? document.fonts.ready.then(() => true)
  : Promise.resolve(true)`

	textLengthJS = `document.body ? document.body.textContent.length : 0`

	scrollHeightJS = `document.documentElement.scrollHeight`

	scrollBottomJS = `window.scrollTo(0, document.documentElement.scrollHeight), true`

	scrollTopJS = `window.scrollTo(0, 0), true`
)
